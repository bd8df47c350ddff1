package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultid/internal/kyc"
	"vaultid/internal/platform/config"
	"vaultid/internal/storage/backend"
	vaultservice "vaultid/internal/vault/service"
	id "vaultid/pkg/domain"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	key, err := vaultservice.GenerateKey()
	require.NoError(t, err)
	return config.Config{
		App:     config.App{Name: "VaultID"},
		Storage: config.Storage{NamespaceDir: t.TempDir()},
		Bridge:  config.Bridge{Timeout: 5 * time.Second, BackendName: backend.DefaultRemoteName},
		Vault:   config.Vault{EncryptionKey: key},
		Auth:    config.Auth{SessionSigningKey: "test-signing-key-0123456789", SessionTTL: time.Hour},
	}
}

func TestBuildInMemory(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.NotNil(t, a.Auth)
	assert.NotNil(t, a.Shares)

	static, err := kyc.NewStaticVerifier([]byte(`{}`))
	require.NoError(t, err)
	svc, err := a.KYC(static)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestBuildRejectsMissingSecrets(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "empty encryption key",
			mutate:  func(c *config.Config) { c.Vault.EncryptionKey = "" },
			wantErr: "vault.encryption_key",
		},
		{
			name:    "encryption key not base64",
			mutate:  func(c *config.Config) { c.Vault.EncryptionKey = "not-base64!!" },
			wantErr: "vault.encryption_key",
		},
		{
			name:    "short signing key",
			mutate:  func(c *config.Config) { c.Auth.SessionSigningKey = "short" },
			wantErr: "auth.session_signing_key",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			var (
				a   *App
				err error
			)
			require.NotPanics(t, func() {
				a, err = Build(context.Background(), cfg)
			})
			assert.Nil(t, a)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCloseIsNilSafe(t *testing.T) {
	var a *App
	assert.NoError(t, a.Close())

	a, err := Build(context.Background(), testConfig(t))
	require.NoError(t, err)
	require.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}

func TestUnreachableBridgeFallsBackLocally(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bridge.Command = []string{"false"}
	reg := prometheus.NewRegistry()
	a, err := Build(context.Background(), cfg, WithRegistry(reg))
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	static, err := kyc.NewStaticVerifier([]byte(`{"status":"found"}`))
	require.NoError(t, err)
	svc, err := a.KYC(static)
	require.NoError(t, err)
	rec, err := svc.Submit(ctx, id.NewIdentityID(), kyc.SubmitRequest{IDType: "nin", IDNumber: "12345678901"})
	require.NoError(t, err)

	assert.Equal(t, backend.DefaultLocalName, rec.StoredOn)
	assert.Regexp(t, `^local_[0-9a-f]{64}$`, rec.LedgerReference)

	check, err := a.KV.VerifyRoot(ctx, rec.IntegrityRoot)
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.Equal(t, backend.DefaultLocalName, check.VerifiedOn)

	count, err := testutil.GatherAndCount(reg, "vaultid_storage_fallback_total")
	require.NoError(t, err)
	assert.Positive(t, count)
}
