// Package bridge invokes the external storage-network process, one subprocess per call.
//
// Every failure mode (timeout, non-zero exit, malformed output, ok=false) is reported
// as a single *UnavailableError so the fallback policy upstream can treat them alike.
package bridge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"vaultid/internal/storage/metrics"
	"vaultid/pkg/platform/sentinel"
)

const (
	DefaultTimeout = 120 * time.Second
	maxStderr      = 2048
)

var tracer = otel.Tracer("vaultid/internal/storage/bridge")

// ErrUnavailable is matched by every error Call returns.
var ErrUnavailable = sentinel.ErrUnavailable

// UnavailableError carries a diagnostic for logs. Callers should only test it with
// errors.Is(err, ErrUnavailable).
type UnavailableError struct {
	Command Command
	Reason  string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("storage bridge command [%s] unavailable: %s", e.Command, e.Reason)
}

func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}

// Bridge runs argv + [command, base64(json(args))] for each call.
type Bridge struct {
	argv    []string
	timeout time.Duration
	env     []string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Bridge)

func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithEnv passes extra variables (RPC endpoints, stream IDs, signer key) to the process.
// Empty values are dropped.
func WithEnv(vars map[string]string) Option {
	return func(b *Bridge) {
		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if vars[k] == "" {
				continue
			}
			b.env = append(b.env, k+"="+vars[k])
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// New builds a Bridge around the given command line, e.g. ["npx", "tsx", "node-scripts/og-bridge.ts"].
func New(argv []string, opts ...Option) (*Bridge, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, fmt.Errorf("bridge: command is required")
	}
	b := &Bridge{
		argv:    append([]string(nil), argv...),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Call runs command with args and decodes the response data into out (if non-nil).
func (b *Bridge) Call(ctx context.Context, command Command, args any, out any) (err error) {
	ctx, span := tracer.Start(ctx, "bridge.call")
	span.SetAttributes(attribute.String("bridge.command", string(command)))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "unavailable"
			span.RecordError(err)
			span.SetStatus(codes.Error, "bridge unavailable")
		}
		b.metrics.ObserveBridgeCall(string(command), outcome, time.Since(start))
		span.End()
	}()

	encoded, err := json.Marshal(args)
	if err != nil {
		return &UnavailableError{Command: command, Reason: "encode arguments: " + err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmdArgs := append(append([]string(nil), b.argv[1:]...), string(command), base64.StdEncoding.EncodeToString(encoded))
	cmd := exec.CommandContext(ctx, b.argv[0], cmdArgs...)
	cmd.Env = append(os.Environ(), b.env...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if runErr := cmd.Run(); runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &UnavailableError{Command: command, Reason: fmt.Sprintf("timed out after %s", b.timeout)}
		}
		return &UnavailableError{Command: command, Reason: fmt.Sprintf("%v: %s", runErr, truncate(stderr.String()))}
	}

	resp, err := parseResponse(stdout.Bytes())
	if err != nil {
		return &UnavailableError{Command: command, Reason: err.Error()}
	}
	if !resp.OK {
		reason := resp.Error
		if reason == "" {
			reason = "command failed"
		}
		return &UnavailableError{Command: command, Reason: reason}
	}
	if out != nil && len(resp.Data) > 0 && string(resp.Data) != "null" {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return &UnavailableError{Command: command, Reason: "decode response data: " + err.Error()}
		}
	}
	if b.logger != nil {
		b.logger.DebugContext(ctx, "storage bridge call completed",
			"command", command,
			"duration", time.Since(start),
		)
	}
	return nil
}

// parseResponse accepts exactly one non-empty line holding a JSON object.
func parseResponse(raw []byte) (*Response, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response")
	}
	if bytes.ContainsAny(trimmed, "\r\n") {
		return nil, errors.New("response must be a single line")
	}
	var resp Response
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	if dec.More() {
		return nil, errors.New("trailing data after response")
	}
	return &resp, nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		return s[:maxStderr] + "..."
	}
	return s
}
