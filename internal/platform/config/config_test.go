package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "VaultID", cfg.App.Name)
	assert.Equal(t, "./storage/og-fallback", cfg.Storage.NamespaceDir)
	assert.Equal(t, 120*time.Second, cfg.Bridge.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "vaultid.audit", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Bridge.Command)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaultid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  name: Custody
bridge:
  command: ["node", "og-bridge.js"]
  timeout: 5s
  env:
    OG_STREAM_ID: "0xabc"
kafka:
  brokers: ["kafka-1:9092"]
`), 0o600))

	t.Setenv("VAULTID_BRIDGE_TIMEOUT", "30s")
	t.Setenv("VAULTID_BRIDGE_ENV_OG_PRIVATE_KEY", "secret")
	t.Setenv("VAULTID_STORAGE_NAMESPACE_DIR", "/var/lib/vaultid")
	t.Setenv("VAULTID_VAULT_ENCRYPTION_KEY", "a2V5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Custody", cfg.App.Name)
	assert.Equal(t, []string{"node", "og-bridge.js"}, cfg.Bridge.Command)
	assert.Equal(t, 30*time.Second, cfg.Bridge.Timeout, "env wins over file")
	assert.Equal(t, "0xabc", cfg.Bridge.Env["OG_STREAM_ID"])
	assert.Equal(t, "secret", cfg.Bridge.Env["OG_PRIVATE_KEY"])
	assert.Equal(t, "/var/lib/vaultid", cfg.Storage.NamespaceDir)
	assert.Equal(t, "a2V5", cfg.Vault.EncryptionKey)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.Kafka.Brokers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	cases := map[string]string{
		"VAULTID_LOG_LEVEL":                "log.level",
		"VAULTID_AUTH_SESSION_SIGNING_KEY": "auth.session_signing_key",
		"VAULTID_BRIDGE_ENV_OG_KV_NODE_URL": "bridge.env.OG_KV_NODE_URL",
		"VAULTID_DATABASE_URL":             "database.url",
	}
	for in, want := range cases {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := cfg
	bad.Storage.NamespaceDir = " "
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Bridge.Timeout = 0
	assert.Error(t, bad.Validate())
}
