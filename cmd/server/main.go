package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/stockgame/internal/api"
	"github.com/mcoot/stockgame/internal/config"
	"github.com/mcoot/stockgame/internal/factory"
	"github.com/mcoot/stockgame/internal/services/account"
	"github.com/mcoot/stockgame/internal/services/auth"
	pgstorage "github.com/mcoot/stockgame/internal/storage/postgres"
	redisstorage "github.com/mcoot/stockgame/internal/storage/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Build factory config
	startingBalance, _ := cfg.StartingBalance()
	accountCfg := account.DefaultConfig()
	accountCfg.StartingBalance = startingBalance

	authCfg := auth.DefaultConfig()
	authCfg.Secret = cfg.SecretBytes()
	authCfg.TTL = cfg.Session.TTL

	factoryCfg := factory.Config{
		AuthConfig:    authCfg,
		AccountConfig: accountCfg,
		LockTimeout:   cfg.Trading.LockTimeout,
		Logger:        logger,
		StorageType:   cfg.Storage.Type,
	}

	switch cfg.Storage.Type {
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Storage.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	case config.StoragePostgres:
		pgCfg := pgstorage.DefaultConfig()
		pgCfg.ConnString = cfg.Storage.DatabaseURL
		factoryCfg.PostgresConfig = &pgCfg
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		AuthService:    app.AuthService,
		AccountService: app.AccountService,
		CatalogService: app.CatalogService,
		Ledger:         app.Ledger,
		TradeEngine:    app.TradeEngine,
	})

	// Create server
	server := api.NewServer(router, api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}
