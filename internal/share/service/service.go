// Package service issues, redeems and revokes share capabilities.
//
// Redemption is bearer access: whoever presents an active token reads the record.
// Missing, inactive and unverified all answer nil so a caller cannot probe which
// tokens ever existed.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"vaultid/internal/audit"
	"vaultid/internal/share/models"
	vaultmodels "vaultid/internal/vault/models"
	id "vaultid/pkg/domain"
	dErrors "vaultid/pkg/domain-errors"
	"vaultid/pkg/platform/sentinel"
)

var tracer = otel.Tracer("vaultid/internal/share/service")

const (
	tokenEntropyBytes = 32
	maxTokenAttempts  = 3

	resultServed = "served"
	resultNull   = "null"
)

type Store interface {
	Create(ctx context.Context, c *models.ShareCapability) error
	FindByID(ctx context.Context, shareID id.ShareID) (*models.ShareCapability, error)
	FindActiveByToken(ctx context.Context, token string) (*models.ShareCapability, error)
	RecordAccess(ctx context.Context, token string, at time.Time) (int64, error)
	Deactivate(ctx context.Context, shareID id.ShareID) (bool, error)
	ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]*models.ShareCapability, error)
}

type VerificationReader interface {
	FindByID(ctx context.Context, verificationID id.VerificationID) (*vaultmodels.VerificationRecord, error)
	ListByIdentity(ctx context.Context, identityID id.IdentityID) ([]*vaultmodels.VerificationRecord, error)
}

type Vault interface {
	RetrieveVerification(ctx context.Context, storageKey string) (map[string]any, error)
}

type AuditLogger interface {
	Log(ctx context.Context, eventType audit.EventType, data map[string]any) (string, error)
}

type Service struct {
	store         Store
	verifications VerificationReader
	vault         Vault
	auditor       AuditLogger
	now           func() time.Time
	logger        *slog.Logger
	metrics       *Metrics
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

func New(store Store, verifications VerificationReader, vault Vault, auditor AuditLogger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("share store is required")
	}
	if verifications == nil {
		return nil, errors.New("verification store is required")
	}
	if vault == nil {
		return nil, errors.New("vault is required")
	}
	if auditor == nil {
		return nil, errors.New("audit logger is required")
	}
	s := &Service{
		store:         store,
		verifications: verifications,
		vault:         vault,
		auditor:       auditor,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue creates an active capability on a verified record owned by identityID. Records
// that are missing, owned by someone else or not verified are all CodeNotFound.
func (s *Service) Issue(ctx context.Context, identityID id.IdentityID, verificationID id.VerificationID, label string) (*models.ShareCapability, error) {
	rec, err := s.verifications.FindByID(ctx, verificationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification")
	}
	if !rec.BelongsTo(identityID) || !rec.IsVerified() {
		return nil, dErrors.New(dErrors.CodeNotFound, "verification not found")
	}

	var c *models.ShareCapability
	for attempt := 1; ; attempt++ {
		token, err := newToken(identityID, verificationID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate token")
		}
		c, err = models.NewShareCapability(identityID, verificationID, token, label, s.now())
		if err != nil {
			return nil, err
		}
		err = s.store.Create(ctx, c)
		if err == nil {
			break
		}
		if !errors.Is(err, sentinel.ErrConflict) || attempt == maxTokenAttempts {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save share capability")
		}
	}
	s.metrics.incIssued()

	s.logBestEffort(ctx, audit.EventShareLinkCreated, map[string]any{
		audit.SubjectKey: identityID.String(),
		"share_hash":     c.Token,
	})
	return c, nil
}

// Redeem returns the public view for token, or nil. Malformed tokens are CodeValidation.
func (s *Service) Redeem(ctx context.Context, token string) (*models.PublicView, error) {
	ctx, span := tracer.Start(ctx, "share.redeem")
	defer span.End()

	if err := models.ValidateToken(token); err != nil {
		return nil, err
	}

	c, err := s.store.FindActiveByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.null(), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load share capability")
	}
	rec, err := s.verifications.FindByID(ctx, c.VerificationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.null(), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification")
	}
	if !rec.IsVerified() {
		return s.null(), nil
	}

	data, err := s.vault.RetrieveVerification(ctx, rec.StorageKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return s.null(), nil
	}

	if _, err := s.store.RecordAccess(ctx, token, s.now()); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Revoked between lookup and access.
			return s.null(), nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record access")
	}
	s.metrics.incRedeemed(resultServed)

	s.logBestEffort(ctx, audit.EventShareLinkAccessed, map[string]any{
		audit.SubjectKey:  c.IdentityID.String(),
		"share_hash":      token,
		"verification_id": c.VerificationID.String(),
	})
	return models.NewPublicView(rec, data), nil
}

// Revoke permanently deactivates shareID. Only the owner may revoke. Revoking an
// inactive capability changes nothing and logs nothing.
func (s *Service) Revoke(ctx context.Context, identityID id.IdentityID, shareID id.ShareID) error {
	c, err := s.store.FindByID(ctx, shareID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "share capability not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load share capability")
	}
	if !c.BelongsTo(identityID) {
		return dErrors.New(dErrors.CodeForbidden, "share capability belongs to another identity")
	}

	changed, err := s.store.Deactivate(ctx, shareID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate share capability")
	}
	if !changed {
		return nil
	}
	s.metrics.incRevoked()

	s.logBestEffort(ctx, audit.EventShareLinkDeactivated, map[string]any{
		audit.SubjectKey: identityID.String(),
		"share_hash":     c.Token,
	})
	return nil
}

// ListForIdentity returns the identity's capabilities, newest first.
func (s *Service) ListForIdentity(ctx context.Context, identityID id.IdentityID) ([]*models.ShareCapability, error) {
	caps, err := s.store.ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list share capabilities")
	}
	return caps, nil
}

// Stats counts verified records, active capabilities and total accesses.
func (s *Service) Stats(ctx context.Context, identityID id.IdentityID) (models.Stats, error) {
	records, err := s.verifications.ListByIdentity(ctx, identityID)
	if err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verifications")
	}
	caps, err := s.store.ListByIdentity(ctx, identityID)
	if err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list share capabilities")
	}

	var stats models.Stats
	for _, rec := range records {
		if rec.IsVerified() {
			stats.TotalVerified++
		}
	}
	for _, c := range caps {
		if c.Active {
			stats.ActiveShares++
		}
		stats.TotalAccesses += c.AccessCount
	}
	return stats, nil
}

func (s *Service) null() *models.PublicView {
	s.metrics.incRedeemed(resultNull)
	return nil
}

func (s *Service) logBestEffort(ctx context.Context, eventType audit.EventType, data map[string]any) {
	if _, err := s.auditor.Log(ctx, eventType, data); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit log failed", "event_type", string(eventType), "error", err)
	}
}

// newToken is the first 16 bytes of sha256(identity || verification || 32 random bytes), hex encoded.
func newToken(identityID id.IdentityID, verificationID id.VerificationID) (string, error) {
	entropy := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(entropy); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(identityID.String()))
	h.Write([]byte(verificationID.String()))
	h.Write(entropy)
	return hex.EncodeToString(h.Sum(nil)[:models.TokenLength/2]), nil
}
