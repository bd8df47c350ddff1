// Package devbridge answers the storage bridge protocol from Redis so the primary
// storage path can run without the storage network.
package devbridge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"vaultid/internal/storage/backend"
)

const (
	valuePrefix = "kv:"
	rootPrefix  = "root:"
)

// Store keeps values under kv:<key> and indexes their roots under root:<sha256>.
type Store struct {
	rdb redis.Cmdable
}

func NewStore(rdb redis.Cmdable) *Store {
	return &Store{rdb: rdb}
}

// Put writes value and its root index atomically. The root is "0x" + sha256(value).
func (s *Store) Put(ctx context.Context, key string, value []byte) (root, txHash string, err error) {
	hexDigest := backend.ContentRoot(value)
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, valuePrefix+key, value, 0)
		p.Set(ctx, rootPrefix+hexDigest, key, 0)
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("redis put %s: %w", key, err)
	}
	return "0x" + hexDigest, "0x" + strings.ToLower(ulid.Make().String()), nil
}

// Get returns the stored bytes, or an empty slice when the key is unknown; the
// bridge protocol does not distinguish the two.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.rdb.Get(ctx, valuePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

// Verify reports whether root was returned by an earlier Put.
func (s *Store) Verify(ctx context.Context, root string) (bool, error) {
	digest := strings.TrimPrefix(strings.ToLower(root), "0x")
	if len(digest) != sha256.Size*2 {
		return false, nil
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, rootPrefix+digest).Result()
	if err != nil {
		return false, fmt.Errorf("redis verify: %w", err)
	}
	return n == 1, nil
}
