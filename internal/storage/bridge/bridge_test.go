package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"vaultid/internal/storage/metrics"
)

// The bridge is exercised against this test binary re-executed as a fake bridge
// process (the os/exec helper-process pattern). HELPER_MODE selects its behavior.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 3 {
		fmt.Println(`{"ok":false,"error":"No command provided"}`)
		os.Exit(1)
	}
	command, encoded := args[1], args[2]

	switch os.Getenv("HELPER_MODE") {
	case "echo":
		raw, _ := base64.StdEncoding.DecodeString(encoded)
		data, _ := json.Marshal(map[string]any{
			"command": command,
			"args":    json.RawMessage(raw),
			"env":     os.Getenv("OG_STREAM_ID"),
		})
		fmt.Printf(`{"ok":true,"data":%s}`+"\n", data)
	case "put":
		fmt.Println(`{"ok":true,"data":{"merkle_root":"0xroot","tx_hash":"0xtx"}}`)
	case "fail":
		fmt.Println(`{"ok":false,"error":"Node selection failed: no nodes"}`)
	case "garbage":
		fmt.Println("npm WARN deprecated something")
	case "multiline":
		fmt.Println(`{"ok":true,"data":{}}`)
		fmt.Println(`{"ok":true,"data":{}}`)
	case "exit":
		fmt.Println(`{"ok":true,"data":{}}`)
		fmt.Fprintln(os.Stderr, "boom")
		os.Exit(3)
	case "sleep":
		time.Sleep(5 * time.Second)
		fmt.Println(`{"ok":true,"data":{}}`)
	case "badData":
		fmt.Println(`{"ok":true,"data":{"merkle_root":42}}`)
	}
}

type BridgeSuite struct {
	suite.Suite
}

func TestBridgeSuite(t *testing.T) {
	suite.Run(t, new(BridgeSuite))
}

func (s *BridgeSuite) newBridge(mode string, opts ...Option) *Bridge {
	s.T().Setenv("GO_WANT_HELPER_PROCESS", "1")
	s.T().Setenv("HELPER_MODE", mode)
	b, err := New([]string{os.Args[0], "-test.run=TestHelperProcess", "--"}, opts...)
	s.Require().NoError(err)
	return b
}

func (s *BridgeSuite) TestSuccessfulCallDecodesData() {
	s.Run("passes command, encoded args and env to the process", func() {
		b := s.newBridge("echo", WithEnv(map[string]string{"OG_STREAM_ID": "stream-1", "OG_PRIVATE_KEY": ""}))

		var out struct {
			Command string            `json:"command"`
			Args    map[string]string `json:"args"`
			Env     string            `json:"env"`
		}
		err := b.Call(context.Background(), CommandGet, GetArgs{Key: "user:nin"}, &out)
		s.Require().NoError(err)
		s.Equal("get", out.Command)
		s.Equal("user:nin", out.Args["key"])
		s.Equal("stream-1", out.Env)
	})

	s.Run("decodes put result", func() {
		b := s.newBridge("put", WithMetrics(metrics.New(prometheus.NewRegistry())))

		var out PutResult
		err := b.Call(context.Background(), CommandPut, PutArgs{Key: "k", Value: "dg=="}, &out)
		s.Require().NoError(err)
		s.Equal("0xroot", out.MerkleRoot)
		s.Equal("0xtx", out.TxHash)
	})
}

func (s *BridgeSuite) TestFailuresNormalizeToUnavailable() {
	cases := []struct {
		mode   string
		opts   []Option
		reason string
	}{
		{mode: "fail", reason: "Node selection failed"},
		{mode: "garbage", reason: "invalid JSON"},
		{mode: "multiline", reason: "single line"},
		{mode: "exit", reason: "boom"},
		{mode: "sleep", opts: []Option{WithTimeout(200 * time.Millisecond)}, reason: "timed out"},
		{mode: "badData", reason: "decode response data"},
	}

	for _, tc := range cases {
		s.Run(tc.mode, func() {
			b := s.newBridge(tc.mode, tc.opts...)

			var out PutResult
			err := b.Call(context.Background(), CommandPut, PutArgs{Key: "k"}, &out)
			s.Require().Error(err)
			s.True(errors.Is(err, ErrUnavailable))

			var ue *UnavailableError
			s.Require().ErrorAs(err, &ue)
			s.Equal(CommandPut, ue.Command)
			s.Contains(ue.Reason, tc.reason)
		})
	}
}

func (s *BridgeSuite) TestMissingExecutableIsUnavailable() {
	b, err := New([]string{"/nonexistent/og-bridge"})
	s.Require().NoError(err)

	err = b.Call(context.Background(), CommandVerify, VerifyArgs{MerkleRoot: "abc"}, nil)
	s.Require().ErrorIs(err, ErrUnavailable)
}

func (s *BridgeSuite) TestNewRequiresCommand() {
	_, err := New(nil)
	s.Require().Error(err)
	_, err = New([]string{" "})
	s.Require().Error(err)
}
