// Package kv is the resilient key-value store: writes and reads go to the storage
// network first and drop to the local fallback when the bridge is unavailable.
// Callers get the same result shape from either path.
package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vaultid/internal/storage/backend"
	"vaultid/internal/storage/metrics"
	"vaultid/pkg/platform/sentinel"
)

var tracer = otel.Tracer("vaultid/internal/storage/kv")

// RootCheck is the answer to an integrity query.
type RootCheck struct {
	MerkleRoot string `json:"merkle_root"`
	Valid      bool   `json:"is_valid"`
	VerifiedOn string `json:"verified_on"`
}

// Store selects a backend per call. Only unavailability of the primary triggers the
// fallback; any error from the fallback itself is returned.
type Store struct {
	primary  backend.Backend
	fallback backend.Backend
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New wires a primary and a fallback backend. A nil primary sends everything to the fallback.
func New(primary, fallback backend.Backend, opts ...Option) (*Store, error) {
	if fallback == nil {
		return nil, fmt.Errorf("kv: fallback backend is required")
	}
	s := &Store{primary: primary, fallback: fallback}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Store writes value under key and returns its integrity root and transaction reference.
func (s *Store) Store(ctx context.Context, key string, value []byte) (backend.Receipt, error) {
	ctx, span := tracer.Start(ctx, "kv.store", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	if s.primary != nil {
		receipt, err := s.primary.Put(ctx, key, value)
		if err == nil {
			span.SetAttributes(attribute.String("kv.backend", receipt.Backend))
			return receipt, nil
		}
		if !errors.Is(err, sentinel.ErrUnavailable) {
			return backend.Receipt{}, fmt.Errorf("store %s: %w", key, err)
		}
		s.degrade(ctx, "store", err, "key", key)
	}

	receipt, err := s.fallback.Put(ctx, key, value)
	if err != nil {
		return backend.Receipt{}, fmt.Errorf("fallback store %s: %w", key, err)
	}
	span.SetAttributes(attribute.String("kv.backend", receipt.Backend))
	return receipt, nil
}

// Retrieve returns the bytes stored under key. The fallback reports a missing key as
// sentinel.ErrNotFound.
func (s *Store) Retrieve(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "kv.retrieve", trace.WithAttributes(attribute.String("kv.key", key)))
	defer span.End()

	if s.primary != nil {
		value, err := s.primary.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, sentinel.ErrUnavailable) {
			return nil, err
		}
		s.degrade(ctx, "retrieve", err, "key", key)
	}
	return s.fallback.Get(ctx, key)
}

// VerifyRoot reports whether root was produced by the backend that answers. In
// fallback mode that is an index lookup, a weaker statement than the network's proof.
func (s *Store) VerifyRoot(ctx context.Context, root string) (RootCheck, error) {
	ctx, span := tracer.Start(ctx, "kv.verify_root")
	defer span.End()

	if s.primary != nil {
		valid, err := s.primary.Verify(ctx, root)
		if err == nil {
			return RootCheck{MerkleRoot: root, Valid: valid, VerifiedOn: s.primary.Name()}, nil
		}
		if !errors.Is(err, sentinel.ErrUnavailable) {
			return RootCheck{}, err
		}
		s.degrade(ctx, "verify", err, "merkle_root", root)
	}
	valid, err := s.fallback.Verify(ctx, root)
	if err != nil {
		return RootCheck{}, fmt.Errorf("fallback verify: %w", err)
	}
	return RootCheck{MerkleRoot: root, Valid: valid, VerifiedOn: s.fallback.Name()}, nil
}

func (s *Store) degrade(ctx context.Context, op string, cause error, attrs ...any) {
	s.metrics.IncFallback(op)
	trace.SpanFromContext(ctx).AddEvent("fallback", trace.WithAttributes(attribute.String("error", cause.Error())))
	if s.logger != nil {
		args := append([]any{"op", op, "error", cause}, attrs...)
		s.logger.WarnContext(ctx, "storage bridge unavailable, using local fallback", args...)
	}
}
