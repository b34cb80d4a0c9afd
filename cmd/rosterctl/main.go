package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/volunteer-roster-api/internal/store"
	"github.com/noah-isme/volunteer-roster-api/pkg/config"
	"github.com/noah-isme/volunteer-roster-api/pkg/logger"
)

// App holds the operator CLI dependencies.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	backend *store.Backend
	ctx     context.Context
}

var app *App

func main() {
	rootCmd := &cobra.Command{
		Use:   "rosterctl",
		Short: "Operator tooling for the volunteer roster",
		Long:  `Prepare the store, reconcile back-references, replay repair tasks and mint API tokens.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Annotations["store"] != "none")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app == nil {
				return
			}
			if app.backend != nil {
				_ = app.backend.Close(context.Background())
			}
			_ = app.logger.Sync()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(repairCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(orgCmd())
	rootCmd.AddCommand(volunteerCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp loads config and logger, and opens the store unless the command works offline.
func initApp(needStore bool) error {
	app = &App{ctx: context.Background()}

	var err error
	app.cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.logger, err = logger.New(app.cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if !needStore {
		return nil
	}

	app.backend, err = store.Open(app.ctx, app.cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	app.logger.Debug("store opened", zap.String("driver", app.backend.Driver))
	return nil
}
