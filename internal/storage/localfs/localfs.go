// Package localfs is the on-disk half of the storage fallback: a namespace directory
// holding blobs, root index entries and ledger events, written atomically.
//
// Layout under the namespace root:
//
//	kv/<sanitized-key>                 blob bytes
//	roots/<merkle_root>                {"key": ..., "stored_at": ...}
//	logs/<sanitized-event-key>.json    serialized audit event
package localfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vaultid/pkg/platform/sentinel"
)

const (
	DirKV    = "kv"
	DirRoots = "roots"
	DirLogs  = "logs"
)

var sanitizer = strings.NewReplacer("..", "_", "/", "_", "\\", "_", ":", "_")

// Sanitize maps a storage key onto a single path element. Traversal sequences and
// path separators (including ':') become underscores.
func Sanitize(key string) string {
	return sanitizer.Replace(key)
}

// Dir is a namespace directory. It is safe for concurrent use; every write is
// temp-file-then-rename so readers never observe a partial file.
type Dir struct {
	root string
}

// Open creates the namespace layout under root if needed.
func Open(root string) (*Dir, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("localfs: namespace directory is required")
	}
	for _, sub := range []string{DirKV, DirRoots, DirLogs} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o700); err != nil {
			return nil, fmt.Errorf("localfs: create %s: %w", sub, err)
		}
	}
	return &Dir{root: root}, nil
}

// Root returns the namespace directory path.
func (d *Dir) Root() string {
	return d.root
}

// WriteAtomic writes data to sub/name via a temp file in the same directory.
func (d *Dir) WriteAtomic(sub, name string, data []byte) error {
	target, err := d.path(sub, name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("localfs: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("localfs: write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("localfs: sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("localfs: close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return fmt.Errorf("localfs: rename %s: %w", name, err)
	}
	return nil
}

// Read returns the contents of sub/name, or sentinel.ErrNotFound.
func (d *Dir) Read(sub, name string) ([]byte, error) {
	target, err := d.path(sub, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("localfs: read %s: %w", name, err)
	}
	return data, nil
}

// Exists reports whether sub/name is present.
func (d *Dir) Exists(sub, name string) (bool, error) {
	target, err := d.path(sub, name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(target)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("localfs: stat %s: %w", name, err)
}

// List returns the names in sub starting with prefix, sorted. Temp files are skipped.
func (d *Dir) List(sub, prefix string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(d.root, sub))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("localfs: list %s: %w", sub, err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (d *Dir) path(sub, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("localfs: invalid file name %q", name)
	}
	return filepath.Join(d.root, sub, name), nil
}
