package backend

import (
	"context"
	"encoding/base64"
	"fmt"

	"vaultid/internal/storage/bridge"
)

// DefaultRemoteName is reported as the backend of writes served by the storage network.
const DefaultRemoteName = "0G Storage Network"

// Caller is the bridge surface Remote needs. *bridge.Bridge satisfies it.
type Caller interface {
	Call(ctx context.Context, command bridge.Command, args any, out any) error
}

// Remote stores blobs on the storage network through the bridge process.
type Remote struct {
	bridge Caller
	name   string
}

func NewRemote(b Caller, name string) *Remote {
	if name == "" {
		name = DefaultRemoteName
	}
	return &Remote{bridge: b, name: name}
}

func (r *Remote) Name() string { return r.name }

func (r *Remote) Put(ctx context.Context, key string, value []byte) (Receipt, error) {
	var out bridge.PutResult
	err := r.bridge.Call(ctx, bridge.CommandPut, bridge.PutArgs{
		Key:   key,
		Value: base64.StdEncoding.EncodeToString(value),
	}, &out)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{IntegrityRoot: out.MerkleRoot, TxRef: out.TxHash, Backend: r.name}, nil
}

// Get returns the stored bytes. The bridge reports a missing key as an empty value,
// so an absent key and an empty blob are indistinguishable here.
func (r *Remote) Get(ctx context.Context, key string) ([]byte, error) {
	var out bridge.GetResult
	if err := r.bridge.Call(ctx, bridge.CommandGet, bridge.GetArgs{Key: key}, &out); err != nil {
		return nil, err
	}
	value, err := base64.StdEncoding.DecodeString(out.Value)
	if err != nil {
		return nil, &bridge.UnavailableError{Command: bridge.CommandGet, Reason: fmt.Sprintf("value is not base64: %v", err)}
	}
	return value, nil
}

func (r *Remote) Verify(ctx context.Context, root string) (bool, error) {
	var out bridge.VerifyResult
	if err := r.bridge.Call(ctx, bridge.CommandVerify, bridge.VerifyArgs{MerkleRoot: root}, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}
