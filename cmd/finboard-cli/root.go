package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"finboard/internal/adapters"
	"finboard/internal/backend"
	"finboard/internal/config"
	"finboard/internal/log"
)

const envPrefix = "FINBOARD"

// Flag names double as viper keys; FINBOARD_API_URL overrides --api-url.
const (
	flagConfig      = "config"
	flagVerbose     = "verbose"
	flagAPIURL      = "api-url"
	flagToken       = "token"
	flagBackend     = "backend"
	flagSQLitePath  = "sqlite-path"
	flagSessionFile = "session-file"
	flagSeedCSV     = "seed-csv"
	flagTimeout     = "timeout"
)

// cliEnv is what every subcommand gets after the persistent pre-run.
type cliEnv struct {
	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	env := &cliEnv{}

	root := &cobra.Command{
		Use:   "finboard-cli",
		Short: "Import, export and summarize personal finance transactions",
		Long: `finboard-cli works against the same stores as the finboard server:
the remote transaction API, a local SQLite file or an in-memory store seeded
from CSV.

Example:
  finboard-cli import bank.csv --backend sqlite
  finboard-cli summary --mode month --value 2024-03
  finboard-cli export --type expense -o expenses.csv`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := readConfig(v, cmd.Flags()); err != nil {
				return err
			}
			env.logger = log.New(log.TerminalConfig(cmd.ErrOrStderr(), "cli", v.GetBool(flagVerbose)))
			env.cfg = settings(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringP(flagConfig, "c", "", "config file (default is ./finboard.yaml when present)")
	flags.BoolP(flagVerbose, "v", false, "enable debug logging")
	flags.String(flagAPIURL, "", "remote transaction API base URL")
	flags.String(flagToken, "", "bearer token for the remote API, overrides the session file")
	flags.String(flagBackend, "", "store backend: remote, sqlite or memory")
	flags.String(flagSQLitePath, "", "SQLite database path")
	flags.String(flagSessionFile, "", "session file holding the remote API token")
	flags.String(flagSeedCSV, "", "CSV file seeding the memory backend")
	flags.Duration(flagTimeout, 0, "remote API request timeout")

	root.AddCommand(
		newImportCmd(env),
		newExportCmd(env),
		newSummaryCmd(env),
		newTemplateCmd(),
	)
	return root
}

// readConfig layers the optional config file, FINBOARD_* variables and
// explicitly set flags, later sources winning.
func readConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString(flagConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}
	v.SetConfigName("finboard")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// settings starts from the server's environment configuration and applies
// the CLI overrides. The CLI never talks to the message queue.
func settings(v *viper.Viper) *config.Config {
	cfg := config.Load()
	cfg.AMQPURL = ""

	if s := v.GetString(flagAPIURL); s != "" {
		cfg.APIBaseURL = s
	}
	if s := v.GetString(flagToken); s != "" {
		cfg.APIToken = s
	}
	if s := v.GetString(flagBackend); s != "" {
		cfg.DataBackend = s
	}
	if s := v.GetString(flagSQLitePath); s != "" {
		cfg.SQLiteDBPath = s
	}
	if s := v.GetString(flagSessionFile); s != "" {
		cfg.SessionFile = s
	}
	if s := v.GetString(flagSeedCSV); s != "" {
		cfg.SeedCSV = s
	}
	if d := v.GetDuration(flagTimeout); d > 0 {
		cfg.APITimeout = d
	}
	return cfg
}

// openApp validates the configuration and builds the services over the
// selected backend. The returned func releases the backend.
func (e *cliEnv) openApp(ctx context.Context) (*adapters.App, func(), error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	bcfg, err := backend.FromAppConfig(e.cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(e.logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			e.logger.Warn("Backend cleanup failed", "error", err)
		}
	}
	return adapters.NewApp(res, e.cfg), release, nil
}
