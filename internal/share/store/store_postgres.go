package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vaultid/internal/platform/postgres"
	"vaultid/internal/share/models"
	id "vaultid/pkg/domain"
	"vaultid/pkg/platform/sentinel"
)

// PostgresStore persists capabilities in share_capabilities.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const shareColumns = `
	id, identity_id, verification_id, token, label, active,
	access_count, last_accessed_at, created_at`

func (s *PostgresStore) Create(ctx context.Context, c *models.ShareCapability) error {
	_, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO share_capabilities (`+shareColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(c.ID), uuid.UUID(c.IdentityID), uuid.UUID(c.VerificationID),
		c.Token, c.Label, c.Active, c.AccessCount, c.LastAccessedAt, c.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert share capability: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, shareID id.ShareID) (*models.ShareCapability, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+shareColumns+` FROM share_capabilities WHERE id = $1`, uuid.UUID(shareID))
	return scanCapability(row)
}

func (s *PostgresStore) FindActiveByToken(ctx context.Context, token string) (*models.ShareCapability, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+shareColumns+` FROM share_capabilities WHERE token = $1 AND active`, token)
	return scanCapability(row)
}

// RecordAccess is a single conditional UPDATE, so concurrent redemptions each add
// exactly one and a revoke that lands first wins.
func (s *PostgresStore) RecordAccess(ctx context.Context, token string, at time.Time) (int64, error) {
	var count int64
	err := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		UPDATE share_capabilities
		SET access_count = access_count + 1, last_accessed_at = $2
		WHERE token = $1 AND active
		RETURNING access_count`, token, at).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("record share access: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, shareID id.ShareID) (bool, error) {
	conn := postgres.Conn(ctx, s.db)
	res, err := conn.ExecContext(ctx,
		`UPDATE share_capabilities SET active = FALSE WHERE id = $1 AND active`, uuid.UUID(shareID))
	if err != nil {
		return false, fmt.Errorf("deactivate share capability: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deactivate share capability rows: %w", err)
	}
	if n == 1 {
		return true, nil
	}
	if _, err := s.FindByID(ctx, shareID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *PostgresStore) ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]*models.ShareCapability, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+shareColumns+` FROM share_capabilities WHERE identity_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(identityID))
	if err != nil {
		return nil, fmt.Errorf("list share capabilities: %w", err)
	}
	defer rows.Close()

	var out []*models.ShareCapability
	for rows.Next() {
		c, err := scanCapability(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate share capabilities: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCapability(row scanner) (*models.ShareCapability, error) {
	var (
		c                                   models.ShareCapability
		shareID, identityID, verificationID uuid.UUID
		lastAccessed                        sql.NullTime
	)
	err := row.Scan(&shareID, &identityID, &verificationID, &c.Token, &c.Label, &c.Active,
		&c.AccessCount, &lastAccessed, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan share capability: %w", err)
	}
	c.ID = id.ShareID(shareID)
	c.IdentityID = id.IdentityID(identityID)
	c.VerificationID = id.VerificationID(verificationID)
	if lastAccessed.Valid {
		at := lastAccessed.Time
		c.LastAccessedAt = &at
	}
	return &c, nil
}
