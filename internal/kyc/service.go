// Package kyc runs a document submission from validation through vault storage.
package kyc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"vaultid/internal/audit"
	vaultmodels "vaultid/internal/vault/models"
	id "vaultid/pkg/domain"
	dErrors "vaultid/pkg/domain-errors"
	"vaultid/pkg/platform/sentinel"
)

type RecordStore interface {
	ReplaceUnverified(ctx context.Context, rec *vaultmodels.VerificationRecord) error
	Update(ctx context.Context, rec *vaultmodels.VerificationRecord) error
}

type Vault interface {
	StoreVerification(ctx context.Context, rec *vaultmodels.VerificationRecord, payload map[string]any) error
}

type AuditLogger interface {
	Log(ctx context.Context, eventType audit.EventType, data map[string]any) (string, error)
}

// Transactor scopes the verified check and the replacement of stale records.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	records  RecordStore
	vault    Vault
	verifier IdentityVerifier
	auditor  AuditLogger
	tx       Transactor
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(records RecordStore, vault Vault, verifier IdentityVerifier, auditor AuditLogger, tx Transactor, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, errors.New("record store is required")
	}
	if vault == nil {
		return nil, errors.New("vault is required")
	}
	if verifier == nil {
		return nil, errors.New("identity verifier is required")
	}
	if auditor == nil {
		return nil, errors.New("audit logger is required")
	}
	if tx == nil {
		return nil, errors.New("transactor is required")
	}
	s := &Service{
		records:  records,
		vault:    vault,
		verifier: verifier,
		auditor:  auditor,
		tx:       tx,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit verifies req with the provider and stores the response for identityID.
// A pair that is already verified is CodeConflict. Provider or storage failures
// leave the record failed and are returned.
func (s *Service) Submit(ctx context.Context, identityID id.IdentityID, req SubmitRequest) (*vaultmodels.VerificationRecord, error) {
	req.Normalize()
	if err := req.Validate(s.now()); err != nil {
		return nil, err
	}

	rec, err := vaultmodels.NewPendingRecord(identityID, req.IDType, HashIDNumber(req.IDNumber), s.now())
	if err != nil {
		return nil, err
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.records.ReplaceUnverified(ctx, rec)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "already verified")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create verification")
	}

	response, err := s.verifier.Verify(ctx, req.IDType, req.ProviderPayload())
	if err != nil {
		return nil, s.fail(ctx, rec, dErrors.Wrap(err, dErrors.CodeBadRequest, "identity provider rejected the document"))
	}
	if err := s.vault.StoreVerification(ctx, rec, response); err != nil {
		return nil, s.fail(ctx, rec, err)
	}
	return rec, nil
}

func (s *Service) fail(ctx context.Context, rec *vaultmodels.VerificationRecord, cause error) error {
	if err := rec.MarkFailed(s.now()); err != nil {
		return cause
	}
	if err := s.records.Update(ctx, rec); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to mark verification failed",
			"verification_id", rec.ID.String(),
			"error", err,
		)
	}
	_, err := s.auditor.Log(ctx, audit.EventVerificationFailed, map[string]any{
		audit.SubjectKey: rec.IdentityID.String(),
		"id_type":        string(rec.IDType),
		"reason":         string(dErrors.CodeOf(cause)),
	})
	if err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit log failed", "event_type", string(audit.EventVerificationFailed), "error", err)
	}
	return cause
}

// HashIDNumber is the hex sha256 kept in place of the raw document number.
func HashIDNumber(idNumber string) string {
	sum := sha256.Sum256([]byte(idNumber))
	return hex.EncodeToString(sum[:])
}
