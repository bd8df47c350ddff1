package localfs

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultid/pkg/platform/sentinel"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user-1:nin", "user-1_nin"},
		{"../../etc/passwd", "____etc_passwd"},
		{`a\b/c`, "a_b_c"},
		{"audit:system:1700000000:abc", "audit_system_1700000000_abc"},
	}
	for _, tt := range tests {
		got := Sanitize(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, got, filepath.Base(got))
	}
}

func TestDir_WriteReadExists(t *testing.T) {
	dir, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, dir.WriteAtomic(DirKV, "blob", []byte("hello")))
	got, err := dir.Read(DirKV, "blob")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	ok, err := dir.Exists(DirKV, "blob")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.Exists(DirKV, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = dir.Read(DirKV, "missing")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestDir_RejectsPathsOutsideNamespace(t *testing.T) {
	dir, err := Open(t.TempDir())
	require.NoError(t, err)

	require.Error(t, dir.WriteAtomic(DirKV, "../escape", []byte("x")))
	require.Error(t, dir.WriteAtomic(DirKV, "..", []byte("x")))
	_, err = dir.Read(DirRoots, "a/b")
	require.Error(t, err)
}

func TestDir_OverwriteLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	dir, err := Open(root)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := make([]byte, 4096)
			for j := range payload {
				payload[j] = byte(i)
			}
			assert.NoError(t, dir.WriteAtomic(DirKV, "contended", payload))
		}(i)
	}
	wg.Wait()

	got, err := dir.Read(DirKV, "contended")
	require.NoError(t, err)
	require.Len(t, got, 4096)
	for _, b := range got {
		require.Equal(t, got[0], b, "blob mixes bytes from different writers")
	}

	entries, err := os.ReadDir(filepath.Join(root, DirKV))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDir_ListFiltersByPrefix(t *testing.T) {
	dir, err := Open(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"audit_u1_2.json", "audit_u1_1.json", "audit_u2_1.json"} {
		require.NoError(t, dir.WriteAtomic(DirLogs, name, []byte("{}")))
	}

	names, err := dir.List(DirLogs, "audit_u1_")
	require.NoError(t, err)
	assert.Equal(t, []string{"audit_u1_1.json", "audit_u1_2.json"}, names)
}
