// Package command defines the vaultid operator commands.
//
// Every command runs against the App built from configuration in Before. With no
// database configured the row stores are in memory, so state lasts one invocation.
package command

import (
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"vaultid/internal/app"
	"vaultid/internal/platform/config"
	"vaultid/internal/platform/logger"
	"vaultid/internal/platform/metrics"
	id "vaultid/pkg/domain"
	"vaultid/pkg/requestcontext"
)

const (
	metadataApp      = "app"
	metadataRegistry = "registry"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func App() *cli.App {
	return &cli.App{
		Name:    "vaultid",
		Usage:   "Self-custodied identity vault operator tool",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			MigrateCommand(),
			NonceCommand(),
			LoginCommand(),
			VerifyIDCommand(),
			ShareCommand(),
			StatsCommand(),
			AuditCommand(),
			IntegrityCommand(),
		},
		Metadata: map[string]any{},
		Before:   setup,
		After:    teardown,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML config file",
			EnvVars: []string{"VAULTID_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "metrics-textfile",
			Usage: "Write Prometheus metrics to this file on exit",
		},
	}
}

// setup builds the App unless one was injected through Metadata.
func setup(c *cli.Context) error {
	c.Context = requestcontext.WithRequestID(c.Context, ulid.Make().String())
	if _, ok := c.App.Metadata[metadataApp].(*app.App); ok {
		return nil
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	reg := metrics.NewRegistry()
	a, err := app.Build(c.Context, cfg,
		app.WithLogger(logger.NewWithWriter(c.App.ErrWriter, cfg.Log.Level, cfg.Log.Format)),
		app.WithRegistry(reg),
	)
	if err != nil {
		return err
	}
	c.App.Metadata[metadataApp] = a
	c.App.Metadata[metadataRegistry] = reg
	return nil
}

func teardown(c *cli.Context) error {
	if path := c.String("metrics-textfile"); path != "" {
		if reg, ok := c.App.Metadata[metadataRegistry].(*prometheus.Registry); ok {
			if err := metrics.WriteTextfile(reg, path); err != nil {
				return err
			}
		}
	}
	if _, injected := c.App.Metadata[metadataRegistry]; !injected {
		return nil
	}
	if a, ok := c.App.Metadata[metadataApp].(*app.App); ok {
		return a.Close()
	}
	return nil
}

func getApp(c *cli.Context) *app.App {
	a, _ := c.App.Metadata[metadataApp].(*app.App)
	return a
}

// sessionIdentity resolves the --session flag to the identity it was issued for.
func sessionIdentity(c *cli.Context) (id.IdentityID, error) {
	return getApp(c).Sessions.ParseSession(c.String("session"))
}

func sessionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "session",
		Usage:    "Session token from login",
		EnvVars:  []string{"VAULTID_SESSION"},
		Required: true,
	}
}

// printJSON writes v as indented JSON to the app's writer.
func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
