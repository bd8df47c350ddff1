// Package service implements wallet challenge-response login.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"vaultid/internal/auth/models"
	id "vaultid/pkg/domain"
	dErrors "vaultid/pkg/domain-errors"
	"vaultid/pkg/platform/sentinel"
	pstrings "vaultid/pkg/platform/strings"
)

const (
	// NonceLength is the number of alphanumeric characters in a challenge nonce.
	NonceLength = 32

	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

type IdentityStore interface {
	UpsertNonce(ctx context.Context, address, nonce string, now time.Time) (*models.Identity, error)
	FindByAddress(ctx context.Context, address string) (*models.Identity, error)
	RotateNonce(ctx context.Context, identityID id.IdentityID, expected, next string, now time.Time) error
}

// Service issues nonces and verifies signed challenges. A successful Verify is the only
// way to obtain an authenticated identity.
type Service struct {
	identities IdentityStore
	appName    string
	now        func() time.Time
	logger     *slog.Logger
	metrics    *Metrics
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

func New(identities IdentityStore, appName string, opts ...Option) *Service {
	s := &Service{identities: identities, appName: appName, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Message is the exact text the wallet signs for nonce.
func (s *Service) Message(nonce string) string {
	return "Sign in to " + s.appName + "\nNonce: " + nonce
}

// IssueNonce stores a fresh nonce for address, creating the identity on first use.
func (s *Service) IssueNonce(ctx context.Context, address string) (string, error) {
	normalized, err := models.NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	nonce, err := pstrings.RandomAlphanumeric(NonceLength)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate nonce")
	}
	if _, err := s.identities.UpsertNonce(ctx, normalized, nonce, s.now()); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store nonce")
	}
	s.metrics.incNonce()
	return nonce, nil
}

// Verify checks signature against the challenge built from the identity's current
// nonce. On success the nonce is rotated and the identity returned. On failure nothing
// changes, so the same challenge can be retried.
func (s *Service) Verify(ctx context.Context, address, signature string) (*models.Identity, error) {
	normalized, err := models.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	ident, err := s.identities.FindByAddress(ctx, normalized)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.reject(ctx, normalized, "unknown address")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	if ident.Nonce == "" {
		return nil, s.reject(ctx, normalized, "no outstanding challenge")
	}

	sig, err := DecodeSignature(signature)
	if err != nil {
		return nil, s.reject(ctx, normalized, "malformed signature")
	}
	recovered, err := RecoverAddress([]byte(s.Message(ident.Nonce)), sig)
	if err != nil {
		return nil, s.reject(ctx, normalized, "recovery failed")
	}
	if !strings.EqualFold(recovered, normalized) {
		return nil, s.reject(ctx, normalized, "address mismatch")
	}

	next, err := pstrings.RandomAlphanumeric(NonceLength)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate nonce")
	}
	now := s.now()
	if err := s.identities.RotateNonce(ctx, ident.ID, ident.Nonce, next, now); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, s.reject(ctx, normalized, "challenge already used")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rotate nonce")
	}
	ident.Nonce = next
	ident.UpdatedAt = now

	s.metrics.incLogin(outcomeSuccess)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "wallet login", "identity_id", ident.ID.String())
	}
	return ident, nil
}

// reject reports every verification failure as the same AuthError. The reason is
// only logged.
func (s *Service) reject(ctx context.Context, address, reason string) error {
	s.metrics.incLogin(outcomeFailure)
	if s.logger != nil {
		s.logger.WarnContext(ctx, "wallet login rejected", "address", address, "reason", reason)
	}
	return dErrors.New(dErrors.CodeUnauthorized, "invalid signature")
}
