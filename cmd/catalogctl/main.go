// Command catalogctl seeds, imports and exports the tresde catalog and
// prepares admin credentials.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tresde/api/internal/config"
	"tresde/api/internal/logging"
	"tresde/api/internal/store"
)

var (
	backend string
	logger  *zap.Logger

	// openCatalog is swapped out in tests.
	openCatalog = func(ctx context.Context, cfg config.Config) (*store.Catalog, error) {
		return store.Open(ctx, cfg, logger)
	}
)

var rootCmd = &cobra.Command{
	Use:   "catalogctl",
	Short: "Manage the tresde tour and brand catalog",
	Long: `catalogctl works directly against the configured backing store
(STORE_BACKEND), bypassing the HTTP API.

Environment is read from ../.env and .env like the API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			return nil
		}
		var err error
		logger, err = logging.New(os.Getenv("APP_ENV"))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "override STORE_BACKEND")
	rootCmd.AddCommand(seedCmd, importCmd, exportCmd, hashPasswordCmd)
}

// loadCatalog opens the store named by the environment or --backend.
func loadCatalog(ctx context.Context) (*store.Catalog, error) {
	cfg := config.Load()
	if backend != "" {
		cfg.StoreBackend = backend
	}
	catalog, err := openCatalog(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	return catalog, nil
}

func main() {
	_ = godotenv.Overload("../.env")
	_ = godotenv.Overload(".env")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
