package main

import (
	"context"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/carwash-app/carwash/edge/gateway/internal/config"
	"github.com/carwash-app/carwash/edge/gateway/internal/health"
	"github.com/carwash-app/carwash/edge/gateway/internal/proxy"
	"github.com/carwash-app/carwash/edge/gateway/internal/router"
	"github.com/carwash-app/carwash/internal/httpclient"
	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/internal/token"
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

	targets := map[string]string{
		"user-service":         cfg.UserServiceURL,
		"weather-service":      cfg.WeatherServiceURL,
		"wash-advisor-service": cfg.AdvisorServiceURL,
	}
	proxies := make(map[string]http.Handler, len(targets))
	checkers := make(map[string]health.Checker, len(targets))
	for name, raw := range targets {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			log.Fatal("invalid upstream url", zap.String("upstream", name), zap.String("url", raw))
		}
		proxies[name] = proxy.New(name, u)
		checkers[name] = httpclient.New(raw, cfg.ProbeTimeout)
	}

	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, 0)
	ready := health.ReadyHandler(checkers, cfg.ProbeTimeout)

	r := router.NewRouter(router.Upstreams{
		User:    proxies["user-service"],
		Weather: proxies["weather-service"],
		Advisor: proxies["wash-advisor-service"],
	}, tokens, ready, cfg)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		log.Info("gateway started", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// HTTP Server for Observability (Metrics & Health)
	obsMux := chi.NewRouter()
	obsMux.Handle("/metrics", promhttp.Handler())
	obsMux.Get("/health/live", observability.HealthLiveHandler)
	obsMux.Get("/health/ready", ready)

	obsSrv := &http.Server{Addr: cfg.ObsHTTPAddr, Handler: obsMux}
	go func() {
		log.Info("HTTP observability server started", zap.String("addr", cfg.ObsHTTPAddr))
		if err := obsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP observability server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("gateway shutdown failed", zap.Error(err))
	}
	if err := obsSrv.Shutdown(ctx); err != nil {
		log.Error("observability shutdown failed", zap.Error(err))
	}

	log.Info("gateway stopped")
}
