package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/analytics"
	"github.com/wardenhq/warden/internal/api"
	"github.com/wardenhq/warden/internal/appeals"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/geoip"
	"github.com/wardenhq/warden/internal/middleware"
	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/moderation"
	"github.com/wardenhq/warden/internal/observability"
	"github.com/wardenhq/warden/internal/ratelimit"
	"github.com/wardenhq/warden/internal/reputation"
	"github.com/wardenhq/warden/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLogger(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observability.RegisterMetrics()
	metricsRegistry := observability.NewPrometheusRegistry()

	if cfg.TracingEnabled {
		shutdownTracing, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TracingEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdownTracing()
	}

	stores, cleanup, err := initStores(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var analyticsSvc analytics.Service
	if cfg.AnalyticsEnabled {
		ch, err := analytics.InitClickHouse(cfg.ClickHouseDSN, logger, metricsRegistry)
		if err != nil {
			return fmt.Errorf("failed to connect clickhouse: %w", err)
		}
		defer func() { _ = ch.Close() }()
		analyticsSvc = ch
	}

	geoSvc, err := geoip.Init(cfg.GeoIPDB)
	if err != nil {
		logger.Warn("geoip unavailable, region enrichment disabled", zap.Error(err))
		geoSvc = nil
	} else {
		defer func() { _ = geoSvc.Close() }()
	}

	policy, err := moderation.NewPolicy(policyConfig(cfg))
	if err != nil {
		return fmt.Errorf("invalid moderation policy: %w", err)
	}

	repManager := reputation.NewManager(stores.Reputation, reputationConfig(cfg), logger, metricsRegistry)
	register := appeals.NewRegister(stores.Appeals, stores.Logs, logger, metricsRegistry)

	manager := moderation.NewManager(moderation.Deps{
		Logger:     logger,
		Metrics:    metricsRegistry,
		Text:       moderation.NewLexicalScorer(),
		Image:      moderation.NewURLImageScorer(),
		Policy:     policy,
		Logs:       stores.Logs,
		Reputation: repManager,
		Appeals:    register,
		Analytics:  analyticsSvc,
	})

	if cfg.ReviewerTokenSecret == "" {
		logger.Warn("REVIEWER_TOKEN_SECRET is empty; appeal resolution tokens are trivially forgeable")
	}

	r := mux.NewRouter()
	srv := api.NewServer(logger, manager, geoSvc, metricsRegistry, []byte(cfg.ReviewerTokenSecret), cfg.ReviewerTokenTTL)
	if cfg.RateLimitEnabled {
		srv.Limiter = ratelimit.NewUserLimiter(ratelimit.Config{
			Capacity:   cfg.RateLimitCapacity,
			RefillRate: cfg.RateLimitRefill,
			Enabled:    true,
		}, metricsRegistry)
	}
	srv.Routes(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Use(middleware.Recover(logger))
	r.Use(middleware.WithTraceLogger(logger))

	var handler http.Handler = r
	if cfg.TracingEnabled {
		handler = otelhttp.NewHandler(r, "warden-http")
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("port", cfg.Port), zap.String("storage", cfg.StorageBackend))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return httpServer.Shutdown(shutdownCtx)
}

// initStores wires the configured storage backend.
func initStores(cfg config.Config) (store.Stores, func(), error) {
	switch cfg.StorageBackend {
	case "memory":
		return store.NewMemory(), func() {}, nil
	case "external":
		pg, err := store.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime)
		if err != nil {
			return store.Stores{}, nil, fmt.Errorf("failed to connect postgres: %w", err)
		}
		rs, err := store.InitRedis(cfg.RedisAddr)
		if err != nil {
			pg.Close()
			return store.Stores{}, nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		cleanup := func() {
			rs.Close()
			pg.Close()
		}
		return store.Stores{
			Logs:       pg.Logs(),
			Appeals:    pg.Appeals(),
			Reputation: rs,
		}, cleanup, nil
	default:
		return store.Stores{}, nil, fmt.Errorf("unknown storage backend %q: %w", cfg.StorageBackend, models.ErrInvalidArgument)
	}
}

func policyConfig(cfg config.Config) moderation.PolicyConfig {
	pc := moderation.DefaultPolicyConfig()
	pc.Dimensions[models.DimToxicity] = moderation.Thresholds{Warn: cfg.ToxicityWarn, Block: cfg.ToxicityBlock}
	pc.Dimensions[models.DimHarassment] = moderation.Thresholds{Warn: cfg.HarassmentWarn, Block: cfg.HarassmentBlock}
	pc.Dimensions[models.DimSpam] = moderation.Thresholds{Warn: cfg.SpamWarn, Block: cfg.SpamBlock}
	pc.Dimensions[models.DimNSFW] = moderation.Thresholds{Warn: cfg.NSFWWarn, Block: cfg.NSFWBlock}
	pc.Dimensions[models.DimViolence] = moderation.Thresholds{Warn: cfg.ViolenceWarn, Block: cfg.ViolenceBlock}
	pc.SpamAction = models.Action(cfg.SpamAction)
	return pc
}

func reputationConfig(cfg config.Config) reputation.Config {
	rc := reputation.DefaultConfig()
	rc.Start = cfg.ReputationStart
	rc.Floor = cfg.ReputationFloor
	rc.Ceiling = cfg.ReputationCeiling
	return rc
}
