package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/cycleinsight/internal/auth"
	"github.com/HerbHall/cycleinsight/internal/config"
	"github.com/HerbHall/cycleinsight/internal/event"
	"github.com/HerbHall/cycleinsight/internal/insight"
	"github.com/HerbHall/cycleinsight/internal/mqtt"
	"github.com/HerbHall/cycleinsight/internal/registry"
	"github.com/HerbHall/cycleinsight/internal/server"
	"github.com/HerbHall/cycleinsight/internal/store"
	"github.com/HerbHall/cycleinsight/internal/version"
	"github.com/HerbHall/cycleinsight/internal/webhook"
	"github.com/HerbHall/cycleinsight/internal/ws"
	"github.com/HerbHall/cycleinsight/pkg/plugin"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// Configuration comes first so log level and format can be configured.
	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}
	cfg := config.New(viperCfg)

	logger, err := config.NewLogger(viperCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("cycleinsight server starting", zap.String("version", version.Short()))
	if f := viperCfg.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("component", "config"), zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults", zap.String("component", "config"))
	}

	var srvCfg server.Config
	if err := cfg.Sub("server").Unmarshal(&srvCfg); err != nil {
		logger.Error("invalid server configuration", zap.Error(err))
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPath := viperCfg.GetString("database.path")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		logger.Error("failed to create database directory", zap.Error(err))
		return 1
	}
	db, err := store.New(dbPath, store.WithBusyTimeout(viperCfg.GetDuration("database.busy_timeout")))
	if err != nil {
		logger.Error("failed to open database", zap.Error(err))
		return 1
	}
	defer db.Close()
	if err := db.CheckVersion(ctx, version.Short()); err != nil {
		logger.Error("database schema check failed", zap.Error(err))
		return 1
	}
	logger.Info("database initialized", zap.String("component", "database"), zap.String("path", dbPath))

	bus := event.NewBus(logger.Named("event"))
	reg := registry.New(logger.Named("registry"))

	modules := []plugin.Plugin{
		insight.New(),
		webhook.New(),
		mqtt.New(),
	}
	for _, m := range modules {
		if err := reg.Register(m); err != nil {
			logger.Error("failed to register module", zap.Error(err))
			return 1
		}
	}

	if err := reg.InitAll(ctx, func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config: cfg.Sub("plugins." + name),
			Logger: logger.Named(name),
			Store:  db,
			Bus:    bus,
		}
	}); err != nil {
		logger.Error("failed to initialize modules", zap.Error(err))
		return 1
	}
	if err := reg.StartAll(ctx); err != nil {
		logger.Error("failed to start modules", zap.Error(err))
		return 1
	}

	// Without a secret the API is open; only suitable for local development.
	var (
		tokens     *auth.TokenService
		authRoutes server.RouteRegistrar
	)
	if secret := viperCfg.GetString("auth.jwt_secret"); secret != "" {
		tokens = auth.NewTokenService([]byte(secret), viperCfg.GetDuration("auth.access_token_ttl"))
		authRoutes = auth.NewHandler(tokens, logger.Named("auth"))
		logger.Info("bearer token auth enabled",
			zap.String("component", "auth"),
			zap.Duration("access_token_ttl", tokens.AccessTokenTTL()),
		)
	} else {
		logger.Warn("auth.jwt_secret is not set, the API is open to every caller", zap.String("component", "auth"))
	}

	wsHandler := ws.NewHandler(tokens, bus, logger.Named("ws"))
	defer wsHandler.Close()

	addr := srvCfg.Addr()
	srv := server.New(addr, reg, logger, db.Ping, authRoutes, srvCfg.Options(), wsHandler)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("cycleinsight server ready", zap.String("addr", addr))
	fmt.Fprintf(os.Stderr, "\n  cycleinsight %s is listening on %s\n\n", version.Short(), addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	exit := 0
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		exit = 1
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	reg.StopAll(shutdownCtx)
	if err := bus.Drain(shutdownCtx); err != nil {
		logger.Warn("event bus did not drain", zap.Error(err))
	}

	logger.Info("cycleinsight server stopped")
	return exit
}
