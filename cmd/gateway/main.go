package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adaptive-gateway/internal/logger"
	"adaptive-gateway/middleware/ratelimit"
	"adaptive-gateway/middleware/ratelimit/application"
	"adaptive-gateway/middleware/ratelimit/domain"
	"adaptive-gateway/middleware/ratelimit/infra"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// .env é opcional; variáveis já exportadas têm precedência
	_ = godotenv.Load()

	cfg, err := readConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.logFormat, cfg.logDebug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	if err := run(cfg, log); err != nil {
		log.Error("gateway_failed", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
}

func run(cfg config, log *zap.Logger) error {
	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		return fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("proxy_error", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	configStore := infra.NewConfigStore(cfg.defaultRule, infra.WithConfigLogger(log))
	trust := infra.NewTrustStore(infra.WithTrustLogger(log))
	store := infra.NewStore(infra.WithCleanupEvery(cfg.cleanupEvery), infra.WithStoreLogger(log))

	admin := application.AdminService{Config: configStore, Limiters: store, Trust: trust, Logger: log}
	if cfg.rulesFile != "" {
		rf, err := infra.LoadRuleFile(cfg.rulesFile)
		if err != nil {
			return err
		}
		if err := rf.ApplyTo(admin); err != nil {
			return fmt.Errorf("apply %s: %w", cfg.rulesFile, err)
		}
		log.Info("rules_file_applied", zap.String("path", cfg.rulesFile), zap.Int("user_rules", len(rf.Users)))
	}

	svc := application.NewService(configStore, store, trust, log)
	svc.Reward = cfg.trustReward
	svc.Penalty = cfg.trustPenalty

	var stats infra.MultiStatsStore
	reg := prometheus.NewRegistry()
	if cfg.metricsEnabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		prom, err := infra.NewPrometheusStatsStore(reg, cfg.metricsNS)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		if err := infra.NewLimiterGauge(reg, cfg.metricsNS, store); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		if err := infra.NewTrustGauge(reg, cfg.metricsNS, trust); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		stats = append(stats, prom)
	}

	if cfg.rateStatsEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.rateStatsRedisAddr,
			Password: cfg.rateStatsRedisPassword,
			DB:       cfg.rateStatsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			return fmt.Errorf("redis stats ping: %w", err)
		}

		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.rateStatsPrefix),
			infra.WithStatsTTL(cfg.rateStatsTTL),
			infra.WithStatsBucket(cfg.rateStatsBucket),
			infra.WithStatsTrackKeys(cfg.rateStatsTrackKeys),
		))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	store.StartJanitor(ctx)

	var statsStore domain.StatsStore
	if len(stats) > 0 {
		statsStore = stats
	}

	r := mux.NewRouter()
	ratelimit.RegisterAdminRoutes(r.PathPrefix("/admin").Subrouter(), ratelimit.AdminOptions{
		Service: admin,
		APIKey:  cfg.adminAPIKey,
		Logger:  log,
	})
	if cfg.metricsEnabled {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	h := http.Handler(proxy)
	if cfg.rateEnabled {
		h = ratelimit.Middleware(ratelimit.Options{
			Service:             svc,
			Stats:               statsStore,
			KeyHeader:           cfg.rateKeyHeader,
			TrustXForwardedFor:  cfg.trustXFF,
			KindFn:              ratelimit.PathKind(cfg.rewardMethod, cfg.rewardPaths...),
			AddRateLimitHeaders: cfg.addHeaders,
			Logger:              log,
		})(h)
	}
	r.PathPrefix("/").Handler(h)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           ratelimit.RequestLogger(log, cfg.rateKeyHeader)(r),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	def := configStore.DefaultRule()
	log.Info("gateway_started",
		zap.String("addr", cfg.listenAddr),
		zap.String("upstream", target.String()),
		zap.Bool("rate_enabled", cfg.rateEnabled),
		zap.Int("default_points", def.Points),
		zap.Int("default_duration_s", def.Duration),
		zap.Int("default_block_s", def.BlockDuration),
		zap.String("key_header", cfg.rateKeyHeader),
		zap.Bool("trust_xff", cfg.trustXFF),
		zap.Strings("reward_paths", cfg.rewardPaths),
		zap.Bool("rate_stats_redis", cfg.rateStatsEnabled),
		zap.Bool("metrics", cfg.metricsEnabled),
		zap.Duration("cleanup_every", store.CleanupEvery()),
	)
	if cfg.adminAPIKey == "" {
		log.Warn("admin_api_key_not_set", zap.String("effect", "admin routes answer 500"))
	} else {
		log.Info("admin_routes_secured", zap.String("header", ratelimit.AdminKeyHeader))
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
