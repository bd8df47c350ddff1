package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"vaultid/internal/storage/localfs"
)

// DefaultLocalName is reported as the backend of writes served by the fallback directory.
const DefaultLocalName = "Local Fallback Storage"

type rootIndexEntry struct {
	Key      string `json:"key"`
	StoredAt string `json:"stored_at"`
}

// Local is the always-available fallback. Its integrity root is sha256(value), and
// Verify only attests that a root was once produced here; it does not re-hash the
// current blob.
type Local struct {
	dir  *localfs.Dir
	name string
	now  func() time.Time
}

type LocalOption func(*Local)

func WithClock(now func() time.Time) LocalOption {
	return func(l *Local) {
		if now != nil {
			l.now = now
		}
	}
}

func WithLocalName(name string) LocalOption {
	return func(l *Local) {
		if name != "" {
			l.name = name
		}
	}
}

func NewLocal(dir *localfs.Dir, opts ...LocalOption) *Local {
	l := &Local{dir: dir, name: DefaultLocalName, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) Name() string { return l.name }

func (l *Local) Put(_ context.Context, key string, value []byte) (Receipt, error) {
	now := l.now()
	root := ContentRoot(value)
	txRef := LocalTxRef(key + strconv.FormatInt(now.Unix(), 10))

	if err := l.dir.WriteAtomic(localfs.DirKV, localfs.Sanitize(key), value); err != nil {
		return Receipt{}, fmt.Errorf("local store blob: %w", err)
	}
	entry, err := json.Marshal(rootIndexEntry{Key: key, StoredAt: now.UTC().Format(time.RFC3339)})
	if err != nil {
		return Receipt{}, fmt.Errorf("encode root index entry: %w", err)
	}
	if err := l.dir.WriteAtomic(localfs.DirRoots, root, entry); err != nil {
		return Receipt{}, fmt.Errorf("local store root index: %w", err)
	}
	return Receipt{IntegrityRoot: root, TxRef: txRef, Backend: l.name}, nil
}

func (l *Local) Get(_ context.Context, key string) ([]byte, error) {
	return l.dir.Read(localfs.DirKV, localfs.Sanitize(key))
}

func (l *Local) Verify(_ context.Context, root string) (bool, error) {
	if !isHexDigest(root) {
		return false, nil
	}
	return l.dir.Exists(localfs.DirRoots, root)
}

// ContentRoot is the fallback integrity root: hex sha256 of the blob.
func ContentRoot(value []byte) string {
	sum := sha256.Sum256(value)
	return hex.EncodeToString(sum[:])
}

// LocalTxRef derives a transaction reference for writes that never reached the network.
func LocalTxRef(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return "local_" + hex.EncodeToString(sum[:])
}

func isHexDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
