package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appidentity "github.com/mediavault/backend/internal/application/identity"
	appmedia "github.com/mediavault/backend/internal/application/media"
	"github.com/mediavault/backend/internal/infrastructure/auth"
	"github.com/mediavault/backend/internal/infrastructure/config"
	"github.com/mediavault/backend/internal/infrastructure/logger"
	"github.com/mediavault/backend/internal/infrastructure/persistence"
	"github.com/mediavault/backend/internal/infrastructure/storage"
	gqlapi "github.com/mediavault/backend/internal/interfaces/graphql"
	httpapi "github.com/mediavault/backend/internal/interfaces/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting MediaVault",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connected")

	// Token revocation runs through Redis when available; without it the
	// server still works but password changes only invalidate tokens held
	// by this process.
	var blacklist auth.TokenBlacklist
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis unavailable, falling back to in-memory token revocation", zap.Error(err))
		blacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}
	cancelPing()

	store, err := storage.NewLocalFileStore(cfg.Storage.Root, cfg.Storage.BaseURL, storage.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	userRepo := persistence.NewGormUserRepository(db.DB)
	assetRepo := persistence.NewGormAssetRepository(db.DB)

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := appidentity.NewAuthService(userRepo, jwtService, blacklist, log)
	userService := appidentity.NewUserService(userRepo, store, log,
		appidentity.WithMaxAvatarSize(cfg.Media.MaxAvatarSize))
	uploadService := appmedia.NewUploadService(assetRepo, store, log,
		appmedia.WithMaxUploadSize(cfg.Media.MaxUploadSize))
	assetService := appmedia.NewAssetService(assetRepo, store, cfg.Media.PerPage, log)

	schema, err := gqlapi.NewSchema(&gqlapi.Resolvers{
		Auth:   authService,
		Users:  userService,
		Upload: uploadService,
		Assets: assetService,
		Store:  store,
	})
	if err != nil {
		log.Fatal("Failed to build GraphQL schema", zap.Error(err))
	}

	engine := httpapi.NewRouter(httpapi.RouterConfig{
		Config:      cfg,
		Logger:      log,
		DB:          db,
		AuthService: authService,
		Schema:      schema,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
