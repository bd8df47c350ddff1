// Package app wires configuration into the services a VaultID process runs.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kadm"

	"vaultid/internal/audit"
	"vaultid/internal/audit/stream"
	authservice "vaultid/internal/auth/service"
	"vaultid/internal/auth/store/identity"
	jwttoken "vaultid/internal/jwt_token"
	"vaultid/internal/kyc"
	"vaultid/internal/platform/config"
	"vaultid/internal/platform/postgres"
	shareservice "vaultid/internal/share/service"
	sharestore "vaultid/internal/share/store"
	"vaultid/internal/storage/backend"
	"vaultid/internal/storage/bridge"
	"vaultid/internal/storage/kv"
	"vaultid/internal/storage/ledger"
	"vaultid/internal/storage/localfs"
	storagemetrics "vaultid/internal/storage/metrics"
	vaultservice "vaultid/internal/vault/service"
	"vaultid/internal/vault/store/verification"
	"vaultid/pkg/platform/tx"
)

const (
	topicPartitions  = 3
	topicReplication = 1
	topicTimeout     = 10 * time.Second
	flushTimeout     = 5 * time.Second
)

type verificationStore interface {
	kyc.RecordStore
	shareservice.VerificationReader
}

// App holds one process's services. Close releases connections.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	DB       *sql.DB
	KV       *kv.Store
	Trail    *audit.Trail
	Auth     *authservice.Service
	Sessions *jwttoken.JWTService
	Vault    *vaultservice.Service
	Shares   *shareservice.Service

	verifications verificationStore
	tx            kyc.Transactor
	closers       []func() error
}

type Option func(*buildConfig)

type buildConfig struct {
	logger   *slog.Logger
	registry prometheus.Registerer
	caller   backend.Caller
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *buildConfig) {
		c.logger = logger
	}
}

// WithRegistry registers every service's metrics on reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(c *buildConfig) {
		c.registry = reg
	}
}

// WithBridge serves storage-network calls from caller instead of spawning
// bridge.command.
func WithBridge(caller backend.Caller) Option {
	return func(c *buildConfig) {
		c.caller = caller
	}
}

// Build connects the configured backends. Without database.url the row stores live
// in memory for the lifetime of the App; without bridge.command storage goes straight
// to the local fallback; without kafka.brokers no stream sink is attached.
func Build(ctx context.Context, cfg config.Config, opts ...Option) (_ *App, err error) {
	bc := buildConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&bc)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: bc.logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	key, err := vaultservice.ParseKey(cfg.Vault.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("vault.encryption_key: %w", err)
	}
	a.Sessions, err = jwttoken.NewJWTService(cfg.Auth.SessionSigningKey, cfg.App.Name, cfg.Auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("auth.session_signing_key: %w", err)
	}

	dir, err := localfs.Open(cfg.Storage.NamespaceDir)
	if err != nil {
		return nil, fmt.Errorf("open fallback namespace: %w", err)
	}
	storageMetrics := storagemetrics.New(bc.registry)

	var primary backend.Backend
	switch {
	case bc.caller != nil:
		primary = backend.NewRemote(bc.caller, cfg.Bridge.BackendName)
	case len(cfg.Bridge.Command) > 0:
		b, err := bridge.New(cfg.Bridge.Command,
			bridge.WithTimeout(cfg.Bridge.Timeout),
			bridge.WithEnv(cfg.Bridge.Env),
			bridge.WithLogger(bc.logger),
			bridge.WithMetrics(storageMetrics),
		)
		if err != nil {
			return nil, err
		}
		primary = backend.NewRemote(b, cfg.Bridge.BackendName)
	}

	a.KV, err = kv.New(primary, backend.NewLocal(dir),
		kv.WithLogger(bc.logger),
		kv.WithMetrics(storageMetrics),
	)
	if err != nil {
		return nil, err
	}
	l, err := ledger.New(primary, dir,
		ledger.WithLogger(bc.logger),
		ledger.WithMetrics(storageMetrics),
	)
	if err != nil {
		return nil, err
	}

	trailOpts := []audit.Option{audit.WithLogger(bc.logger)}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := a.connectStream(ctx, cfg.Kafka, bc)
		if err != nil {
			return nil, err
		}
		trailOpts = append(trailOpts, audit.WithSink(sink))
	}
	a.Trail = audit.NewTrail(l, trailOpts...)

	var identities authservice.IdentityStore
	var shares shareservice.Store
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)
		identities = identity.NewPostgres(db)
		a.verifications = verification.NewPostgres(db)
		shares = sharestore.NewPostgres(db)
		a.tx = postgres.NewTransactor(db)
	} else {
		identities = identity.New()
		a.verifications = verification.New()
		shares = sharestore.New()
		a.tx = tx.Nop{}
	}

	a.Auth = authservice.New(identities, cfg.App.Name,
		authservice.WithLogger(bc.logger),
		authservice.WithMetrics(authservice.NewMetrics(bc.registry)),
	)
	a.Vault, err = vaultservice.New(a.KV, a.verifications, a.Trail, key,
		vaultservice.WithLogger(bc.logger),
		vaultservice.WithMetrics(vaultservice.NewMetrics(bc.registry)),
	)
	if err != nil {
		return nil, err
	}
	a.Shares, err = shareservice.New(shares, a.verifications, a.Vault, a.Trail,
		shareservice.WithLogger(bc.logger),
		shareservice.WithMetrics(shareservice.NewMetrics(bc.registry)),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// KYC returns a submission service that asks verifier about documents.
func (a *App) KYC(verifier kyc.IdentityVerifier) (*kyc.Service, error) {
	return kyc.New(a.verifications, a.Vault, verifier, a.Trail, a.tx, kyc.WithLogger(a.Logger))
}

// Verifications exposes the record store for read-only listings.
func (a *App) Verifications() shareservice.VerificationReader {
	return a.verifications
}

func (a *App) connectStream(ctx context.Context, cfg config.Kafka, bc buildConfig) (*stream.Publisher, error) {
	client, err := stream.NewClient(cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error {
		// Close fails whatever is still buffered.
		flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		err := client.Flush(flushCtx)
		client.Close()
		if err != nil {
			return fmt.Errorf("flush audit stream: %w", err)
		}
		return nil
	})

	ensureCtx, cancel := context.WithTimeout(ctx, topicTimeout)
	defer cancel()
	if err := stream.EnsureTopic(ensureCtx, kadm.NewClient(client), cfg.Topic, topicPartitions, topicReplication); err != nil {
		bc.logger.WarnContext(ctx, "audit stream topic not ensured", "topic", cfg.Topic, "error", err)
	}
	return stream.New(client, cfg.Topic,
		stream.WithLogger(bc.logger),
		stream.WithMetrics(stream.NewMetrics(bc.registry)),
	)
}

// Close releases every connection Build opened, in reverse order.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
