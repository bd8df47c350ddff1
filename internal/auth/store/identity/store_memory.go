package identity

import (
	"context"
	"sync"
	"time"

	"vaultid/internal/auth/models"
	id "vaultid/pkg/domain"
	"vaultid/pkg/platform/sentinel"
)

// InMemoryIdentityStore keys identities by ID with a wallet address index.
type InMemoryIdentityStore struct {
	mu        sync.RWMutex
	byID      map[id.IdentityID]*models.Identity
	byAddress map[string]id.IdentityID
}

func New() *InMemoryIdentityStore {
	return &InMemoryIdentityStore{
		byID:      make(map[id.IdentityID]*models.Identity),
		byAddress: make(map[string]id.IdentityID),
	}
}

// UpsertNonce sets nonce on the identity owning address, creating it when absent.
func (s *InMemoryIdentityStore) UpsertNonce(_ context.Context, address, nonce string, now time.Time) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if identityID, ok := s.byAddress[address]; ok {
		ident := s.byID[identityID]
		ident.Nonce = nonce
		ident.UpdatedAt = now
		c := *ident
		return &c, nil
	}
	ident := &models.Identity{
		ID:            id.NewIdentityID(),
		WalletAddress: address,
		Nonce:         nonce,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.byID[ident.ID] = ident
	s.byAddress[address] = ident.ID
	c := *ident
	return &c, nil
}

func (s *InMemoryIdentityStore) FindByAddress(_ context.Context, address string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identityID, ok := s.byAddress[address]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *s.byID[identityID]
	return &c, nil
}

func (s *InMemoryIdentityStore) FindByID(_ context.Context, identityID id.IdentityID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.byID[identityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *ident
	return &c, nil
}

// RotateNonce replaces expected with next. A nonce that already moved on is
// sentinel.ErrConflict, so a challenge is consumed at most once.
func (s *InMemoryIdentityStore) RotateNonce(_ context.Context, identityID id.IdentityID, expected, next string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ident, ok := s.byID[identityID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if ident.Nonce != expected {
		return sentinel.ErrConflict
	}
	ident.Nonce = next
	ident.UpdatedAt = now
	return nil
}
