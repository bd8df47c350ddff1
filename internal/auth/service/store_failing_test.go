package service

import (
	"context"
	"errors"
	"time"

	"vaultid/internal/auth/models"
	id "vaultid/pkg/domain"
)

type failingStore struct{}

var errStoreDown = errors.New("database unavailable")

func (failingStore) UpsertNonce(context.Context, string, string, time.Time) (*models.Identity, error) {
	return nil, errStoreDown
}

func (failingStore) FindByAddress(context.Context, string) (*models.Identity, error) {
	return nil, errStoreDown
}

func (failingStore) RotateNonce(context.Context, id.IdentityID, string, string, time.Time) error {
	return errStoreDown
}
