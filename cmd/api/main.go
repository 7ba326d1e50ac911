package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"financial_model/pkg/api/valuation"
	"financial_model/pkg/config"
	"financial_model/pkg/core/pipeline"
	"financial_model/pkg/core/store"
	"financial_model/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when configured, file vault otherwise
	if cfg.Store.DatabaseURL != "" {
		if err := store.InitDB(ctx, cfg.Store.DatabaseURL); err != nil {
			logger.Warn("database unavailable, using file store", logging.Err(err))
		} else if err := store.EnsureSchema(ctx, store.GetPool()); err != nil {
			logger.Error("schema setup failed", logging.Err(err))
			os.Exit(1)
		}
		defer store.Close()
	}
	repo := store.NewRunRepo(store.GetPool(), cfg.Store.RunDir(), logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	orch := pipeline.NewOrchestrator(repo, cfg.Projection.Workers, logger)
	h := valuation.NewHandler(orch, repo, valuation.NewMetrics(reg), logger)
	h.DefaultYears = cfg.Projection.Years
	h.Rates = cfg.Sensitivity.Rates()
	h.Multiples = cfg.Sensitivity.Multiples()
	h.MonteCarlo = cfg.MonteCarlo

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	h.Register(r)

	logged := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(handlers.LoggingHandler(os.Stdout, r))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           logged,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("API server starting",
		logging.String("addr", cfg.Server.Addr),
		logging.Bool("database", store.GetPool() != nil))
	logger.Info("routes",
		logging.Any("endpoints", []string{
			"POST /api/valuation/run",
			"GET  /api/valuation/runs",
			"GET  /api/valuation/runs/{id}",
			"GET  /api/valuation/runs/{id}/report?format=md|html|xlsx",
			"GET  /healthz",
			"GET  /metrics",
		}))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
