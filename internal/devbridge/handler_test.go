package devbridge

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultid/internal/storage/bridge"
)

type mapBackend struct {
	values map[string][]byte
	roots  map[string]bool
	err    error
}

func newMapBackend() *mapBackend {
	return &mapBackend{values: map[string][]byte{}, roots: map[string]bool{}}
}

func (m *mapBackend) Put(_ context.Context, key string, value []byte) (string, string, error) {
	if m.err != nil {
		return "", "", m.err
	}
	sum := sha256.Sum256(value)
	root := "0x" + hex.EncodeToString(sum[:])
	m.values[key] = value
	m.roots[root] = true
	return root, "0xtx", nil
}

func (m *mapBackend) Get(_ context.Context, key string) ([]byte, error) {
	return m.values[key], m.err
}

func (m *mapBackend) Verify(_ context.Context, root string) (bool, error) {
	return m.roots[root], m.err
}

func encodeArgs(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func call(t *testing.T, b Backend, command, args string) (bridge.Response, error) {
	t.Helper()
	var out bytes.Buffer
	err := Handle(context.Background(), b, command, args, &out)
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("\n")), "exactly one line")
	var resp bridge.Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	return resp, err
}

func TestHandlePutGetVerify(t *testing.T) {
	b := newMapBackend()
	value := []byte("ciphertext")

	resp, err := call(t, b, "put", encodeArgs(t, bridge.PutArgs{Key: "user:nin", Value: base64.StdEncoding.EncodeToString(value)}))
	require.NoError(t, err)
	require.True(t, resp.OK)
	var put bridge.PutResult
	require.NoError(t, json.Unmarshal(resp.Data, &put))
	assert.Equal(t, "0xtx", put.TxHash)

	resp, err = call(t, b, "get", encodeArgs(t, bridge.GetArgs{Key: "user:nin"}))
	require.NoError(t, err)
	var got bridge.GetResult
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	decoded, err := base64.StdEncoding.DecodeString(got.Value)
	require.NoError(t, err)
	assert.Equal(t, value, decoded)

	resp, err = call(t, b, "verify", encodeArgs(t, bridge.VerifyArgs{MerkleRoot: put.MerkleRoot}))
	require.NoError(t, err)
	var verified bridge.VerifyResult
	require.NoError(t, json.Unmarshal(resp.Data, &verified))
	assert.True(t, verified.Valid)
}

func TestHandleMissingKeyIsEmptyValue(t *testing.T) {
	resp, err := call(t, newMapBackend(), "get", encodeArgs(t, bridge.GetArgs{Key: "nope"}))
	require.NoError(t, err)
	var got bridge.GetResult
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Empty(t, got.Value)
}

func TestHandleFailuresReportOKFalse(t *testing.T) {
	broken := newMapBackend()
	broken.err = errors.New("connection refused")

	tests := []struct {
		name    string
		backend Backend
		command string
		args    string
	}{
		{"unknown command", newMapBackend(), "delete", encodeArgs(t, bridge.GetArgs{Key: "k"})},
		{"args not base64", newMapBackend(), "get", "%%%"},
		{"args not json", newMapBackend(), "get", base64.StdEncoding.EncodeToString([]byte("nope"))},
		{"put without key", newMapBackend(), "put", encodeArgs(t, bridge.PutArgs{Value: ""})},
		{"backend error", broken, "verify", encodeArgs(t, bridge.VerifyArgs{MerkleRoot: "0x00"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := call(t, tt.backend, tt.command, tt.args)
			assert.Error(t, err)
			assert.False(t, resp.OK)
			assert.NotEmpty(t, resp.Error)
		})
	}
}
