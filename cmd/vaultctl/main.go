// vaultctl is the operations CLI for MediaVault. It talks directly to the
// database and file store using the same configuration as the server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appmedia "github.com/mediavault/backend/internal/application/media"
	"github.com/mediavault/backend/internal/infrastructure/config"
	"github.com/mediavault/backend/internal/infrastructure/logger"
	"github.com/mediavault/backend/internal/infrastructure/persistence"
	"github.com/mediavault/backend/internal/infrastructure/storage"
)

// app holds the wired dependencies shared by all subcommands.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	db        *persistence.Database
	store     *storage.LocalFileStore
	userRepo  *persistence.GormUserRepository
	assetRepo *persistence.GormAssetRepository
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stderr",
	})
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	store, err := storage.NewLocalFileStore(cfg.Storage.Root, cfg.Storage.BaseURL, storage.WithLogger(log))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing file storage: %w", err)
	}

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		store:     store,
		userRepo:  persistence.NewGormUserRepository(db.DB),
		assetRepo: persistence.NewGormAssetRepository(db.DB),
	}, nil
}

func (a *app) assetService() *appmedia.AssetService {
	return appmedia.NewAssetService(a.assetRepo, a.store, a.cfg.Media.PerPage, a.log)
}

func (a *app) thumbnailService() *appmedia.ThumbnailService {
	return appmedia.NewThumbnailService(a.assetRepo, a.store, a.log)
}

var rootCmd = &cobra.Command{
	Use:           "vaultctl",
	Short:         "MediaVault operations CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(deleteUserAssetsCmd)
	rootCmd.AddCommand(generateThumbnailsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
