//go:build integration

package integration_tests

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/crypto/sha3"

	authservice "vaultid/internal/auth/service"
	"vaultid/internal/devbridge"
	"vaultid/internal/storage/bridge"
)

// inProcessBridge speaks the bridge protocol to devbridge.Handle without a subprocess.
type inProcessBridge struct {
	backend devbridge.Backend
}

func (b inProcessBridge) Call(ctx context.Context, command bridge.Command, args any, out any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	var line bytes.Buffer
	_ = devbridge.Handle(ctx, b.backend, string(command), base64.StdEncoding.EncodeToString(raw), &line)

	var resp bridge.Response
	if err := json.Unmarshal(line.Bytes(), &resp); err != nil {
		return err
	}
	if !resp.OK {
		return &bridge.UnavailableError{Command: command, Reason: resp.Error}
	}
	if out != nil && len(resp.Data) > 0 {
		return json.Unmarshal(resp.Data, out)
	}
	return nil
}

// wallet signs login challenges the way a browser wallet does.
type wallet struct {
	key     *secp256k1.PrivateKey
	address string
}

func newWallet(t *testing.T) wallet {
	t.Helper()
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	h := sha3.NewLegacyKeccak256()
	h.Write(key.PubKey().SerializeUncompressed()[1:])
	return wallet{key: key, address: "0x" + hex.EncodeToString(h.Sum(nil)[12:])}
}

func (w wallet) sign(message string) string {
	compact := ecdsa.SignCompact(w.key, authservice.HashPersonalMessage([]byte(message)), false)
	sig := append(append([]byte{}, compact[1:]...), compact[0])
	return "0x" + hex.EncodeToString(sig)
}

// consume reads want records from the start of topic.
func consume(t *testing.T, brokers []string, topic string, want int) []*kgo.Record {
	t.Helper()
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var out []*kgo.Record
	for len(out) < want {
		fetches := client.PollFetches(ctx)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			t.Fatalf("consumed %d of %d records from %s before timeout", len(out), want, topic)
		}
		for _, fe := range fetches.Errors() {
			t.Fatalf("fetch %s[%d]: %v", fe.Topic, fe.Partition, fe.Err)
		}
		fetches.EachRecord(func(r *kgo.Record) {
			out = append(out, r)
		})
	}
	return out
}

func header(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
