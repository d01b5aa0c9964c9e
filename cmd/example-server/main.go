package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adaptive-gateway/internal/logger"
	"adaptive-gateway/middleware/ratelimit/application"
	"adaptive-gateway/middleware/ratelimit/infra"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Exemplo: a admissão injetada direto no webserver (sem proxy),
	// com a API de demonstração e as rotas admin.
	_ = godotenv.Load()

	log, err := logger.NewDevelopmentLogger(os.Getenv("LOG_DEBUG") == "true")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	configStore := infra.NewConfigStore(infra.DefaultRule, infra.WithConfigLogger(log))
	trust := infra.NewTrustStore(infra.WithTrustLogger(log))
	store := infra.NewStore(infra.WithStoreLogger(log))
	stats := infra.NewMemoryStatsStore()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	store.StartJanitor(ctx)

	adminKey := os.Getenv("ADMIN_API_KEY")
	h := newRouter(deps{
		svc:         application.NewService(configStore, store, trust, log),
		admin:       application.AdminService{Config: configStore, Limiters: store, Trust: trust, Logger: log},
		stats:       stats,
		adminAPIKey: adminKey,
		log:         log,
	})

	addr := ":3000"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		total := stats.Total()
		log.Info("example_server_stopped", zap.Int64("admitted", total.Allowed), zap.Int64("throttled", total.Denied))
	}()

	def := configStore.DefaultRule()
	log.Info("example_server_listening", zap.String("addr", addr))
	if adminKey == "" {
		log.Warn("admin_routes_not_secured", zap.String("hint", "set ADMIN_API_KEY"))
	} else {
		log.Info("admin_routes_secured", zap.String("header", "x-admin-api-key"))
	}
	log.Info("default_rate_limit", zap.Int("points", def.Points), zap.Int("duration_s", def.Duration))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server_error", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
}
