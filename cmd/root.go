// Package cmd implements the rtharvest command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jjenkins/rtharvest/internal/config"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/store"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var (
	configFile string

	cfg *config.Config
	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rtharvest",
	Short: "Harvest legal acts from the Riigi Teataja API",
	Long: `rtharvest pages through the Riigi Teataja search API, downloads the text of
each legal act and keeps a local archive of acts with their validity status.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v, err := config.New(configFile)
		if err != nil {
			return err
		}
		cfg, err = config.Load(v)
		if err != nil {
			return err
		}

		log, err = logger.New(logger.Config{
			Level:       cfg.Log.Level,
			Development: cfg.Log.Development,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./rtharvest.yaml when present)")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Warn("Received interrupt signal, committing processed acts")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func openStore(ctx context.Context) (*sqlx.DB, error) {
	log.Info("Connecting to database", logger.String("driver", cfg.Database.Driver))
	db, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return db, nil
}
