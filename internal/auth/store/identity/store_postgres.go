package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vaultid/internal/auth/models"
	"vaultid/internal/platform/postgres"
	id "vaultid/pkg/domain"
	"vaultid/pkg/platform/sentinel"
)

// PostgresStore persists identities in the identities table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const identityColumns = `id, wallet_address, email, nonce, created_at, updated_at`

func (s *PostgresStore) UpsertNonce(ctx context.Context, address, nonce string, now time.Time) (*models.Identity, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO identities (id, wallet_address, nonce, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (wallet_address) DO UPDATE SET
			nonce = EXCLUDED.nonce,
			updated_at = EXCLUDED.updated_at
		RETURNING `+identityColumns,
		uuid.New(), address, nonce, now)
	ident, err := scanIdentity(row)
	if err != nil {
		return nil, fmt.Errorf("upsert identity nonce: %w", err)
	}
	return ident, nil
}

func (s *PostgresStore) FindByAddress(ctx context.Context, address string) (*models.Identity, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE wallet_address = $1`, address)
	return scanIdentity(row)
}

func (s *PostgresStore) FindByID(ctx context.Context, identityID id.IdentityID) (*models.Identity, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1`, uuid.UUID(identityID))
	return scanIdentity(row)
}

// RotateNonce is a compare-and-swap on the nonce column.
func (s *PostgresStore) RotateNonce(ctx context.Context, identityID id.IdentityID, expected, next string, now time.Time) error {
	conn := postgres.Conn(ctx, s.db)
	res, err := conn.ExecContext(ctx, `
		UPDATE identities SET nonce = $3, updated_at = $4
		WHERE id = $1 AND nonce = $2`,
		uuid.UUID(identityID), expected, next, now)
	if err != nil {
		return fmt.Errorf("rotate nonce: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rotate nonce rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := conn.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM identities WHERE id = $1)`,
		uuid.UUID(identityID)).Scan(&exists); err != nil {
		return fmt.Errorf("check identity: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row scanner) (*models.Identity, error) {
	var (
		ident         models.Identity
		identityID    uuid.UUID
		wallet, email sql.NullString
	)
	if err := row.Scan(&identityID, &wallet, &email, &ident.Nonce, &ident.CreatedAt, &ident.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	ident.ID = id.IdentityID(identityID)
	ident.WalletAddress = wallet.String
	ident.Email = email.String
	return &ident, nil
}
