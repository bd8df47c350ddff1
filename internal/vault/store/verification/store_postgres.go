package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"vaultid/internal/platform/postgres"
	"vaultid/internal/vault/models"
	id "vaultid/pkg/domain"
	"vaultid/pkg/platform/sentinel"
)

// PostgresStore persists verification records in the verifications table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectColumns = `
	id, identity_id, id_type, id_number_hash, status,
	storage_key, integrity_root, ledger_reference, stored_on,
	verified_at, created_at, updated_at`

// ReplaceUnverified deletes pending and failed rows for the pair and inserts rec. Callers
// that need the check and write to be atomic run it inside postgres.Transactor.
func (s *PostgresStore) ReplaceUnverified(ctx context.Context, rec *models.VerificationRecord) error {
	conn := postgres.Conn(ctx, s.db)

	var existing uuid.UUID
	err := conn.QueryRowContext(ctx, `
		SELECT id FROM verifications
		WHERE identity_id = $1 AND id_type = $2 AND status = $3
		FOR UPDATE`, uuid.UUID(rec.IdentityID), string(rec.IDType), string(models.StatusVerified)).Scan(&existing)
	switch {
	case err == nil:
		return sentinel.ErrConflict
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check verified record: %w", err)
	}

	_, err = conn.ExecContext(ctx, `
		DELETE FROM verifications
		WHERE identity_id = $1 AND id_type = $2 AND status IN ($3, $4)`,
		uuid.UUID(rec.IdentityID), string(rec.IDType),
		string(models.StatusPending), string(models.StatusFailed))
	if err != nil {
		return fmt.Errorf("delete unverified records: %w", err)
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO verifications (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.UUID(rec.ID), uuid.UUID(rec.IdentityID), string(rec.IDType), rec.IDNumberHash, string(rec.Status),
		nullString(rec.StorageKey), nullString(rec.IntegrityRoot), nullString(rec.LedgerReference), nullString(rec.StoredOn),
		rec.VerifiedAt, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, verificationID id.VerificationID) (*models.VerificationRecord, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM verifications WHERE id = $1`, uuid.UUID(verificationID))
	return scanRecord(row)
}

func (s *PostgresStore) FindByIdentityAndType(ctx context.Context, identityID id.IdentityID, idType models.IDType) (*models.VerificationRecord, error) {
	row := postgres.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM verifications WHERE identity_id = $1 AND id_type = $2`,
		uuid.UUID(identityID), string(idType))
	return scanRecord(row)
}

func (s *PostgresStore) Update(ctx context.Context, rec *models.VerificationRecord) error {
	res, err := postgres.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE verifications SET
			status = $2, storage_key = $3, integrity_root = $4, ledger_reference = $5,
			stored_on = $6, verified_at = $7, updated_at = $8
		WHERE id = $1`,
		uuid.UUID(rec.ID), string(rec.Status),
		nullString(rec.StorageKey), nullString(rec.IntegrityRoot), nullString(rec.LedgerReference), nullString(rec.StoredOn),
		rec.VerifiedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update verification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update verification rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]*models.VerificationRecord, error) {
	rows, err := postgres.Conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+selectColumns+` FROM verifications WHERE identity_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(identityID))
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	var out []*models.VerificationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verifications: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.VerificationRecord, error) {
	var (
		rec                                            models.VerificationRecord
		recID, identityID                              uuid.UUID
		idType, status                                 string
		storageKey, integrityRoot, ledgerRef, storedOn sql.NullString
		verifiedAt                                     sql.NullTime
	)
	err := row.Scan(&recID, &identityID, &idType, &rec.IDNumberHash, &status,
		&storageKey, &integrityRoot, &ledgerRef, &storedOn,
		&verifiedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan verification: %w", err)
	}
	rec.ID = id.VerificationID(recID)
	rec.IdentityID = id.IdentityID(identityID)
	rec.IDType = models.IDType(idType)
	rec.Status = models.Status(status)
	rec.StorageKey = storageKey.String
	rec.IntegrityRoot = integrityRoot.String
	rec.LedgerReference = ledgerRef.String
	rec.StoredOn = storedOn.String
	if verifiedAt.Valid {
		at := verifiedAt.Time
		rec.VerifiedAt = &at
	}
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
