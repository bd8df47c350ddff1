// Package service encrypts verification payloads into the resilient store and
// moves verification records to verified.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vaultid/internal/audit"
	"vaultid/internal/storage/backend"
	"vaultid/internal/vault/models"
	dErrors "vaultid/pkg/domain-errors"
	"vaultid/pkg/platform/sentinel"
)

// KeyValueStore is the resilient store. kv.Store satisfies it.
type KeyValueStore interface {
	Store(ctx context.Context, key string, value []byte) (backend.Receipt, error)
	Retrieve(ctx context.Context, key string) ([]byte, error)
}

// RecordStore persists verification record changes.
type RecordStore interface {
	Update(ctx context.Context, rec *models.VerificationRecord) error
}

// AuditLogger records events. audit.Trail satisfies it.
type AuditLogger interface {
	Log(ctx context.Context, eventType audit.EventType, data map[string]any) (string, error)
}

type Service struct {
	kv      KeyValueStore
	records RecordStore
	auditor AuditLogger
	key     *Key
	now     func() time.Time
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(kv KeyValueStore, records RecordStore, auditor AuditLogger, key *Key, opts ...Option) (*Service, error) {
	if kv == nil || records == nil || auditor == nil {
		return nil, fmt.Errorf("vault: kv store, record store and audit logger are required")
	}
	if key == nil {
		return nil, fmt.Errorf("vault: encryption key is required")
	}
	s := &Service{kv: kv, records: records, auditor: auditor, key: key, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StoreVerification encrypts payload, writes it under identity:idType and marks rec
// verified. The completion event is logged after the write and its failure leaves the
// record verified without a ledger reference.
func (s *Service) StoreVerification(ctx context.Context, rec *models.VerificationRecord, payload map[string]any) error {
	if rec == nil {
		return dErrors.New(dErrors.CodeBadRequest, "verification record is required")
	}
	if rec.Status != models.StatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "only pending verifications can be stored")
	}

	plaintext, err := canonicalJSON(payload)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "payload is not serializable")
	}
	sealed, err := s.key.Seal(plaintext)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encrypt payload")
	}

	storageKey := models.StorageKey(rec.IdentityID, rec.IDType)
	receipt, err := s.kv.Store(ctx, storageKey, sealed)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store payload")
	}
	s.metrics.incStored()

	// rec stays pending unless the verified state is saved.
	verified := *rec
	if err := verified.MarkVerified(storageKey, receipt.IntegrityRoot, receipt.Backend, s.now()); err != nil {
		return err
	}
	if err := s.records.Update(ctx, &verified); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification")
	}
	*rec = verified

	ref, err := s.auditor.Log(ctx, audit.EventVerificationCompleted, map[string]any{
		audit.SubjectKey: rec.IdentityID.String(),
		"id_type":        string(rec.IDType),
		"merkle_root":    receipt.IntegrityRoot,
	})
	if err != nil {
		s.warn(ctx, "audit log failed", "event_type", string(audit.EventVerificationCompleted), "error", err)
		return nil
	}

	rec.LedgerReference = ref
	rec.UpdatedAt = s.now()
	if err := s.records.Update(ctx, rec); err != nil {
		s.warn(ctx, "failed to save ledger reference",
			"verification_id", rec.ID.String(),
			"ledger_reference", ref,
			"error", err,
		)
	}
	return nil
}

// RetrieveVerification returns the decrypted payload stored at storageKey, or nil when
// nothing is stored there. Payloads that fail authentication are CodeDataCorrupted.
func (s *Service) RetrieveVerification(ctx context.Context, storageKey string) (map[string]any, error) {
	blob, err := s.kv.Retrieve(ctx, storageKey)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read payload")
	}
	if len(blob) == 0 {
		return nil, nil
	}

	plaintext, err := s.key.Open(blob)
	if err != nil {
		s.metrics.incDecryptFailure()
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "vault payload failed authentication", "storage_key", storageKey)
		}
		return nil, err
	}

	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(plaintext))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDataCorrupted, "stored payload is not a JSON object")
	}
	return payload, nil
}

// canonicalJSON encodes payload with object keys sorted, so equal payloads encode to
// equal bytes.
func canonicalJSON(payload map[string]any) ([]byte, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (s *Service) warn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}
