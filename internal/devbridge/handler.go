package devbridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"vaultid/internal/storage/bridge"
)

// Backend is the storage the handler answers from. *Store satisfies it.
type Backend interface {
	Put(ctx context.Context, key string, value []byte) (root, txHash string, err error)
	Get(ctx context.Context, key string) ([]byte, error)
	Verify(ctx context.Context, root string) (bool, error)
}

// Handle decodes one bridge invocation (command plus base64 JSON arguments), runs it
// and writes the single-line response to w. The returned error is what was reported;
// callers use it only to pick an exit status.
func Handle(ctx context.Context, b Backend, command, encodedArgs string, w io.Writer) error {
	data, err := dispatch(ctx, b, bridge.Command(command), encodedArgs)
	resp := bridge.Response{OK: err == nil}
	if err != nil {
		resp.Error = err.Error()
	} else {
		raw, merr := json.Marshal(data)
		if merr != nil {
			resp = bridge.Response{Error: "encode response: " + merr.Error()}
			err = merr
		} else {
			resp.Data = raw
		}
	}
	line, merr := json.Marshal(resp)
	if merr != nil {
		return merr
	}
	if _, werr := fmt.Fprintf(w, "%s\n", line); werr != nil {
		return werr
	}
	return err
}

func dispatch(ctx context.Context, b Backend, command bridge.Command, encodedArgs string) (any, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedArgs)
	if err != nil {
		return nil, fmt.Errorf("arguments are not base64: %w", err)
	}

	switch command {
	case bridge.CommandPut:
		var args bridge.PutArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("decode put arguments: %w", err)
		}
		if args.Key == "" {
			return nil, fmt.Errorf("key is required")
		}
		value, err := base64.StdEncoding.DecodeString(args.Value)
		if err != nil {
			return nil, fmt.Errorf("value is not base64: %w", err)
		}
		root, txHash, err := b.Put(ctx, args.Key, value)
		if err != nil {
			return nil, err
		}
		return bridge.PutResult{MerkleRoot: root, TxHash: txHash}, nil

	case bridge.CommandGet:
		var args bridge.GetArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("decode get arguments: %w", err)
		}
		value, err := b.Get(ctx, args.Key)
		if err != nil {
			return nil, err
		}
		return bridge.GetResult{Value: base64.StdEncoding.EncodeToString(value)}, nil

	case bridge.CommandVerify:
		var args bridge.VerifyArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("decode verify arguments: %w", err)
		}
		valid, err := b.Verify(ctx, args.MerkleRoot)
		if err != nil {
			return nil, err
		}
		return bridge.VerifyResult{Valid: valid}, nil
	}
	return nil, fmt.Errorf("unknown command %q", command)
}
