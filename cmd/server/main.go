package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/muzz-match/internal/app"
	"github.com/oggyb/muzz-match/internal/cache"
	"github.com/oggyb/muzz-match/internal/config"
	"github.com/oggyb/muzz-match/internal/db"
	"github.com/oggyb/muzz-match/internal/identity"
	"github.com/oggyb/muzz-match/internal/logger"
	"github.com/oggyb/muzz-match/internal/realtime"
	"github.com/oggyb/muzz-match/internal/server"
	"github.com/oggyb/muzz-match/internal/service/conversation"
	"github.com/oggyb/muzz-match/internal/service/discovery"
	"github.com/oggyb/muzz-match/internal/service/matching"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg, log)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}
	sqlDB, err := database.DB()
	if err != nil {
		log.Error("failed to access db pool", "err", err)
		return
	}
	defer sqlDB.Close()

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}
	defer redisCache.Close()

	if cfg.IsDevelopment() {
		if _, err := db.SeedTestData(database, db.DefaultSeedOptions(), log); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	verifier := identity.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	// Realtime: one presence registry shared by socket.io and gRPC streams
	registry := realtime.NewMemoryRegistry()
	var gwOpts []realtime.GatewayOption
	if cfg.Redis.Broadcast {
		gwOpts = append(gwOpts, realtime.WithBroadcaster(realtime.NewRedisBroadcaster(redisCache, realtime.DefaultChannel, log)))
	}
	gateway := realtime.NewGateway(registry, log, gwOpts...)
	socket := realtime.NewSocketServer(registry, verifier, log)

	appCtx := app.New(database, redisCache, gateway, log)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(log, verifier,
		discovery.NewRegistrar(appCtx),
		matching.NewRegistrar(appCtx),
		conversation.NewRegistrar(appCtx),
	)
	httpSrv := &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           server.NewHTTPHandler(router, socket, cfg.HTTP.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv := server.NewGRPCServer(log, realtime.NewStreamService(registry, verifier, log))
	lis, err := server.ListenGRPC(cfg)
	if err != nil {
		log.Error("failed to start gRPC listener", "err", err)
		return
	}

	errCh := make(chan error, 3)
	go func() {
		if err := gateway.Run(ctx); err != nil {
			errCh <- err
		}
	}()
	go func() {
		if err := socket.Serve(); err != nil {
			log.Warn("socket.io loop stopped", "err", err)
		}
	}()
	go func() {
		log.Info("starting HTTP server", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		log.Info("starting gRPC server", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("server failed", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "err", err)
	}
	if err := socket.Close(); err != nil {
		log.Warn("socket.io shutdown", "err", err)
	}
	server.StopGRPC(grpcSrv, shutdownTimeout)
	stop()
}
