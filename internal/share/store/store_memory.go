package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"vaultid/internal/share/models"
	id "vaultid/pkg/domain"
	"vaultid/pkg/platform/sentinel"
)

// InMemoryShareStore serializes every mutation under one lock, which gives RecordAccess
// the same exactly-once increment the Postgres UPDATE does.
type InMemoryShareStore struct {
	mu      sync.RWMutex
	byID    map[id.ShareID]*models.ShareCapability
	byToken map[string]id.ShareID
}

func New() *InMemoryShareStore {
	return &InMemoryShareStore{
		byID:    make(map[id.ShareID]*models.ShareCapability),
		byToken: make(map[string]id.ShareID),
	}
}

func (s *InMemoryShareStore) Create(_ context.Context, c *models.ShareCapability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byToken[c.Token]; taken {
		return sentinel.ErrConflict
	}
	if _, taken := s.byID[c.ID]; taken {
		return sentinel.ErrConflict
	}
	s.byID[c.ID] = clone(c)
	s.byToken[c.Token] = c.ID
	return nil
}

func (s *InMemoryShareStore) FindByID(_ context.Context, shareID id.ShareID) (*models.ShareCapability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[shareID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(c), nil
}

// FindActiveByToken treats inactive and missing capabilities alike.
func (s *InMemoryShareStore) FindActiveByToken(_ context.Context, token string) (*models.ShareCapability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shareID, ok := s.byToken[token]
	if !ok || !s.byID[shareID].Active {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.byID[shareID]), nil
}

// RecordAccess increments the access count of an active capability and returns the
// new count.
func (s *InMemoryShareStore) RecordAccess(_ context.Context, token string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shareID, ok := s.byToken[token]
	if !ok || !s.byID[shareID].Active {
		return 0, sentinel.ErrNotFound
	}
	c := s.byID[shareID]
	c.AccessCount++
	accessed := at
	c.LastAccessedAt = &accessed
	return c.AccessCount, nil
}

// Deactivate reports whether the capability was active before the call.
func (s *InMemoryShareStore) Deactivate(_ context.Context, shareID id.ShareID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[shareID]
	if !ok {
		return false, sentinel.ErrNotFound
	}
	was := c.Active
	c.Active = false
	return was, nil
}

// ListByIdentity returns the identity's capabilities, newest first.
func (s *InMemoryShareStore) ListByIdentity(_ context.Context, identityID id.IdentityID) ([]*models.ShareCapability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ShareCapability
	for _, c := range s.byID {
		if c.IdentityID == identityID {
			out = append(out, clone(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func clone(c *models.ShareCapability) *models.ShareCapability {
	out := *c
	if c.LastAccessedAt != nil {
		at := *c.LastAccessedAt
		out.LastAccessedAt = &at
	}
	return &out
}
