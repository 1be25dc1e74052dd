package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/app"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/cache"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/clock"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/config"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/eventbus"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/metrics"
	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/storage/postgres"
	transporthttp "github.com/liuchongliu35-ctrl/hadoop-mall/internal/transport/http"
	"github.com/liuchongliu35-ctrl/hadoop-mall/migrations"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}
	applyLogLevel(cfg.LogLevel)
	logger := log.With().Str("app", cfg.AppName).Logger()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal().Err(err).Msg("db ping")
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(startupCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("redis ping")
	}
	store := cache.NewRedis(redisClient)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	var recorder app.SalesRecorder
	if cfg.AMQPURL != "" {
		publisher, err := eventbus.NewPublisher(cfg.AMQPURL, cfg.SalesExchange, cfg.SalesRoutingKey, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect sales event publisher")
		}
		defer publisher.Close()
		recorder = publisher
	} else {
		logger.Warn().Msg("AMQP_URL not set, sales recording is log-only")
		recorder = eventbus.LogRecorder{Logger: logger}
	}

	clk := clock.NewSystem()
	activityRepo := postgres.NewActivityRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	counterRepo := postgres.NewCounterRepository(pool)

	ids := app.NewIDGenerator(counterRepo, clk, logger)
	orderSvc := app.NewOrderService(activityRepo, orderRepo, store, ids, recorder, clk, logger, m,
		app.WithLockWait(cfg.LockWait))
	activitySvc := app.NewActivityService(activityRepo, ids, clk, logger)
	limiter := app.NewRateLimiter(store, map[app.Scope]app.LimitRule{
		app.ScopeUserActivity: {Limit: cfg.UserActivityLimit, Window: cfg.UserActivityWindow},
		app.ScopeGlobal:       {Limit: cfg.GlobalLimit, Window: cfg.GlobalWindow},
	}, m)

	scheduler := app.NewScheduler(activitySvc, cfg.SchedulerPeriod, logger)
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	go scheduler.Run(schedulerCtx)

	auth := transporthttp.HeaderAuth{}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/orders", transporthttp.Authenticate(auth, transporthttp.HandleOrders(orderSvc, limiter)))
	mux.Handle("/orders/", transporthttp.Authenticate(auth, transporthttp.HandleOrderByID(orderSvc)))
	mux.Handle("/admin/activities", transporthttp.HandleActivities(activitySvc))
	mux.Handle("/admin/activities/", transporthttp.HandleActivityByID(activitySvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(
		transporthttp.CORS(parseCSV(cfg.CORSOrigins),
			transporthttp.GlobalRateLimit(limiter, mux)),
		logger,
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	logger.Info().Str("port", cfg.Port).Msg("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-stopCtx.Done():
		logger.Info().Msg("shutdown signal received, stopping server")
	}

	stopScheduler()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("server stopped")
}

func applyLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func parseCSV(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
