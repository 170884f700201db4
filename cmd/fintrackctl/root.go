package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	flog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// app is the state shared by every subcommand.
type app struct {
	configPath string
	username   string

	cfg    *config.Config
	logger *flog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "fintrackctl",
		Short:        "Administer a fintrack ledger",
		Long:         "Apply migrations, seed demo data, manage accounts and print reports from the configured fintrack store.",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "TOML config file (overrides "+config.FileEnv+")")
	root.PersistentFlags().StringVarP(&a.username, "user", "u", "demo", "Ledger owner for reports and exports")

	root.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newUserCmd(a),
		newReportCmd(a),
		newExportCmd(a),
	)
	return root
}

// load reads configuration the same way the services do. Logs go to stderr
// so command output stays pipeable.
func (a *app) load() error {
	if a.configPath != "" {
		if err := os.Setenv(config.FileEnv, a.configPath); err != nil {
			return err
		}
	}
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = flog.New(flog.Config{
		Level:     flog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: flog.ComponentCLI,
		Output:    os.Stderr,
	})
	return nil
}

// openStore opens the configured store; SQL backends migrate on open.
func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(a.logger.Logger, nil).OpenStore(ctx, bcfg)
}

func (a *app) userID(ctx context.Context, store storage.UserStore) (int64, error) {
	u, err := store.GetUserByUsername(ctx, a.username)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("unknown user %q", a.username)
	}
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}
