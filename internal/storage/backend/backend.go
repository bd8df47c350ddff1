// Package backend defines the storage capability shared by the storage network
// (reached through the bridge) and the local fallback directory.
package backend

import "context"

// Receipt is what a write returns regardless of which backend served it.
type Receipt struct {
	IntegrityRoot string
	TxRef         string
	Backend       string
}

// Backend is a content-addressed blob store.
//
// Get returns sentinel.ErrNotFound when the backend can tell the key is absent.
// Remote implementations return errors matching sentinel.ErrUnavailable when the
// network cannot be reached; callers use that to decide whether to fall back.
type Backend interface {
	Name() string
	Put(ctx context.Context, key string, value []byte) (Receipt, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Verify(ctx context.Context, root string) (bool, error)
}
