// Package config loads process configuration once at start-up. Sources, later ones
// winning: built-in defaults, an optional YAML file, VAULTID_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	pstrings "vaultid/pkg/platform/strings"
)

// EnvPrefix is stripped from environment variables; VAULTID_BRIDGE_TIMEOUT maps to bridge.timeout.
const EnvPrefix = "VAULTID_"

type Config struct {
	App      App      `koanf:"app"`
	Log      Log      `koanf:"log"`
	Storage  Storage  `koanf:"storage"`
	Bridge   Bridge   `koanf:"bridge"`
	Vault    Vault    `koanf:"vault"`
	Auth     Auth     `koanf:"auth"`
	Database Database `koanf:"database"`
	Kafka    Kafka    `koanf:"kafka"`
	Redis    Redis    `koanf:"redis"`
}

type App struct {
	Name string `koanf:"name"`
}

type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type Storage struct {
	// NamespaceDir holds the local fallback layout (kv/, roots/, logs/).
	NamespaceDir string `koanf:"namespace_dir"`
}

type Bridge struct {
	// Command is the argv prefix of the bridge process. Empty disables the storage
	// network and every operation runs against the local fallback.
	Command []string          `koanf:"command"`
	Timeout time.Duration     `koanf:"timeout"`
	Env     map[string]string `koanf:"env"`
	// BackendName is reported by reads and integrity checks served by the network.
	BackendName string `koanf:"backend_name"`
}

type Vault struct {
	// EncryptionKey is base64 of 32 random bytes.
	EncryptionKey string `koanf:"encryption_key"`
}

type Auth struct {
	SessionSigningKey string        `koanf:"session_signing_key"`
	SessionTTL        time.Duration `koanf:"session_ttl"`
}

type Database struct {
	URL string `koanf:"url"`
}

type Kafka struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

type Redis struct {
	URL string `koanf:"url"`
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":              "VaultID",
		"log.level":             "info",
		"log.format":            "json",
		"storage.namespace_dir": "./storage/og-fallback",
		"bridge.timeout":        "120s",
		"bridge.backend_name":   "0G Storage Network",
		"auth.session_ttl":      "24h",
		"kafka.topic":           "vaultid.audit",
	}
}

// Load reads defaults, then path (when non-empty), then the environment.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Kafka.Brokers = pstrings.SplitList(cfg.Kafka.Brokers)
	cfg.Bridge.Command = pstrings.Compact(cfg.Bridge.Command)
	return cfg, nil
}

// envKey maps VAULTID_SECTION_SOME_KEY to section.some_key. Only the first underscore
// after the prefix separates the section.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	if section == "bridge" {
		if name, found := strings.CutPrefix(rest, "env_"); found {
			return "bridge.env." + strings.ToUpper(name)
		}
	}
	return section + "." + rest
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Storage.NamespaceDir) == "" {
		return fmt.Errorf("storage.namespace_dir is required")
	}
	if c.Bridge.Timeout <= 0 {
		return fmt.Errorf("bridge.timeout must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("auth.session_ttl must be positive")
	}
	return nil
}

// mapProvider feeds a flat key map to koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("config: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	out := make(map[string]any, len(m))
	for key, v := range m {
		out[key] = v
	}
	return unflatten(out), nil
}

func unflatten(flat map[string]any) map[string]any {
	out := map[string]any{}
	for key, v := range flat {
		parts := strings.Split(key, ".")
		cur := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur[p].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[p] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = v
	}
	return out
}
