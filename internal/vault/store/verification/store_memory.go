package verification

import (
	"context"
	"sort"
	"sync"

	"vaultid/internal/vault/models"
	id "vaultid/pkg/domain"
	"vaultid/pkg/platform/sentinel"
)

// InMemoryVerificationStore keeps records in a map. Records are copied in and out so
// callers never share state with the store.
type InMemoryVerificationStore struct {
	mu      sync.RWMutex
	records map[id.VerificationID]*models.VerificationRecord
}

func New() *InMemoryVerificationStore {
	return &InMemoryVerificationStore{records: make(map[id.VerificationID]*models.VerificationRecord)}
}

// ReplaceUnverified removes pending and failed records for the record's (identity, id type)
// and inserts rec. A verified record for the pair is sentinel.ErrConflict.
func (s *InMemoryVerificationStore) ReplaceUnverified(_ context.Context, rec *models.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, existing := range s.records {
		if existing.IdentityID != rec.IdentityID || existing.IDType != rec.IDType {
			continue
		}
		if existing.Status == models.StatusVerified {
			return sentinel.ErrConflict
		}
		delete(s.records, key)
	}
	s.records[rec.ID] = clone(rec)
	return nil
}

func (s *InMemoryVerificationStore) FindByID(_ context.Context, verificationID id.VerificationID) (*models.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[verificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(rec), nil
}

func (s *InMemoryVerificationStore) FindByIdentityAndType(_ context.Context, identityID id.IdentityID, idType models.IDType) (*models.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.IdentityID == identityID && rec.IDType == idType {
			return clone(rec), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryVerificationStore) Update(_ context.Context, rec *models.VerificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.records[rec.ID] = clone(rec)
	return nil
}

// ListByIdentity returns the identity's records, newest first.
func (s *InMemoryVerificationStore) ListByIdentity(_ context.Context, identityID id.IdentityID) ([]*models.VerificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.VerificationRecord
	for _, rec := range s.records {
		if rec.IdentityID == identityID {
			out = append(out, clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func clone(rec *models.VerificationRecord) *models.VerificationRecord {
	c := *rec
	if rec.VerifiedAt != nil {
		at := *rec.VerifiedAt
		c.VerifiedAt = &at
	}
	return &c
}
