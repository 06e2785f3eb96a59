package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/database"
	"github.com/carwash-app/carwash/internal/httpclient"
	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/internal/scheduler"
	"github.com/carwash-app/carwash/services/advisor/internal/config"
	"github.com/carwash-app/carwash/services/advisor/internal/consumer"
	"github.com/carwash-app/carwash/services/advisor/internal/handler"
	"github.com/carwash-app/carwash/services/advisor/internal/jobs"
	"github.com/carwash-app/carwash/services/advisor/internal/repository"
	"github.com/carwash-app/carwash/services/advisor/internal/service"
	"github.com/carwash-app/carwash/services/advisor/internal/upstream"
	"github.com/carwash-app/carwash/services/advisor/migrations"
)

const probeTimeout = 5 * time.Second

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

	// Upstream services
	userHTTP := httpclient.New(cfg.UserServiceURL, cfg.UpstreamTimeout)
	weatherHTTP := httpclient.New(cfg.WeatherServiceURL, cfg.UpstreamTimeout)

	// Wire dependencies
	recs := repository.NewRecommendationRepository(db)
	svc := service.NewAdvisorService(
		upstream.NewUserClient(userHTTP),
		upstream.NewWeatherClient(weatherHTTP),
		recs,
		repository.NewContextRepository(db),
		cfg.Scoring,
		cfg.CacheTTL,
	)

	probe := func(ctx context.Context) upstream.Status {
		return upstream.Probe(ctx, userHTTP, weatherHTTP, probeTimeout)
	}
	h := handler.NewAdvisorHandler(svc, db, probe, cfg.ServiceName)
	mux := handler.NewRouter(h, handler.RouterConfig{
		ServiceName: cfg.ServiceName,
		CORSOrigins: cfg.CORSOrigins,
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

	// User events
	if len(cfg.KafkaBrokers) > 0 {
		c, err := consumer.New(cfg.KafkaBrokers, svc)
		if err != nil {
			log.Fatal("kafka consumer init failed", zap.Error(err))
		}
		defer c.Close()
		c.Start(rootCtx)
	} else {
		log.Warn("KAFKA_BROKERS not set, user events will not be consumed")
	}

	// Cleanup job
	sched := scheduler.New(log, time.Minute)
	if err := sched.Add(cfg.CleanupSchedule, jobs.NewExpiryCleanup(recs, cfg.ExpiredRetention)); err != nil {
		log.Fatal("cleanup schedule invalid", zap.Error(err))
	}
	sched.Start()

	// Graceful shutdown
	<-rootCtx.Done()
	log.Info("shutting down...")

	ctxShut, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sched.Stop(ctxShut)
	_ = srv.Shutdown(ctxShut)
	_ = obsSrv.Shutdown(ctxShut)
	log.Info("stopped", zap.String("service", cfg.ServiceName))
}
