package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/database"
	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/internal/scheduler"
	"github.com/carwash-app/carwash/internal/token"
	"github.com/carwash-app/carwash/services/user/internal/cache"
	"github.com/carwash-app/carwash/services/user/internal/config"
	"github.com/carwash-app/carwash/services/user/internal/handler"
	"github.com/carwash-app/carwash/services/user/internal/kafka"
	"github.com/carwash-app/carwash/services/user/internal/outbox"
	"github.com/carwash-app/carwash/services/user/internal/repository"
	"github.com/carwash-app/carwash/services/user/internal/service"
	"github.com/carwash-app/carwash/services/user/migrations"
)

func main() {
	cfg := config.Load()

	// Observability
	observability.InitLogger(cfg.ServiceName, cfg.LogLevel)
	log := observability.Log
	defer log.Sync()

	if cfg.TracingEnabled {
		tp, err := observability.InitTracer(cfg.ServiceName, cfg.JaegerURL)
		if err != nil {
			log.Fatal("failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Error("failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.Open(rootCtx, cfg.DatabaseURL, database.DefaultOptions(), log)
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close()

	if err := database.MigrateUp(cfg.DatabaseURL, migrations.FS, migrations.Table); err != nil {
		log.Fatal("migrations failed", zap.Error(err))
	}

	// Redis profile cache
	var userCache service.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(rootCtx).Err(); err != nil {
			log.Warn("redis unreachable, profile cache disabled", zap.Error(err))
		} else {
			userCache = &cache.UserCache{R: rdb, TTL: cfg.ProfileCacheTTL}
		}
	}

	// Wire dependencies
	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTokenTTL)
	outboxRepo := outbox.NewRepository(db)
	svc := service.NewUserService(
		repository.NewUserRepository(db),
		userCache,
		outboxRepo,
		&database.TxManager{DB: db},
		tokens,
	)

	h := handler.NewUserHandler(svc, db, cfg.ServiceName)
	mux := handler.NewRouter(h, tokens, handler.RouterConfig{
		ServiceName:    cfg.ServiceName,
		CORSOrigins:    cfg.CORSOrigins,
		LoginRateLimit: cfg.LoginRateLimitPerMin,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("HTTP started", zap.String("service", cfg.ServiceName), zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// HTTP Observability server
	obsMux := chi.NewRouter()
	obsMux.Handle("/metrics", promhttp.Handler())
	obsMux.Get("/health/live", observability.HealthLiveHandler)
	obsMux.Get("/health/ready", observability.HealthReadyHandler(db))

	obsSrv := &http.Server{Addr: cfg.ObsHTTPAddr, Handler: obsMux}
	go func() {
		log.Info("Observability HTTP started", zap.String("addr", cfg.ObsHTTPAddr))
		if err := obsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Observability server failed", zap.Error(err))
		}
	}()

	// Outbox publisher
	workerCtx, workerCancel := context.WithCancel(context.Background())
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers)
		defer producer.Close()
		go outbox.NewPublisher(outboxRepo, producer).Start(workerCtx)
	} else {
		log.Warn("KAFKA_BROKERS not set, user events stay in the outbox")
	}

	// Outbox purge
	sched := scheduler.New(log, time.Minute)
	if err := sched.Add(cfg.OutboxPurgeSchedule, outbox.NewPurgeJob(outboxRepo, cfg.OutboxRetention)); err != nil {
		log.Fatal("outbox purge schedule invalid", zap.Error(err))
	}
	sched.Start()

	// Graceful shutdown
	<-rootCtx.Done()
	log.Info("shutting down...")

	workerCancel()

	ctxShut, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sched.Stop(ctxShut)

	_ = srv.Shutdown(ctxShut)
	_ = obsSrv.Shutdown(ctxShut)
	log.Info("stopped", zap.String("service", cfg.ServiceName))
}
