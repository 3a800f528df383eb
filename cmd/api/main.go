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

	"grid-arbitrage/internal/api"
	"grid-arbitrage/internal/arbitrage"
	"grid-arbitrage/internal/config"
	"grid-arbitrage/internal/logging"
	"grid-arbitrage/internal/metrics"
	"grid-arbitrage/internal/store"

	"github.com/rs/zerolog/log"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional; defaults and env otherwise)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *cfgPath != "" {
		cfg, err = config.Load(*cfgPath)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	if err := logging.Setup(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}

	runs, err := store.New(cfg.Storage.DSN)
	if err != nil {
		log.Fatal().Err(err).Str("dsn", cfg.Storage.DSN).Msg("api: open run store")
	}
	defer runs.Close()

	rec := metrics.New()
	engine := arbitrage.New(
		arbitrage.WithRecorder(rec),
		arbitrage.WithIdleTolerance(cfg.Income.IdleTolerance),
	)

	router := api.NewRouter(api.Deps{
		Config:  cfg,
		Engine:  engine,
		Runs:    runs,
		Metrics: rec,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Server.Env).Msg("api: starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("api: server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("api: shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api: shutdown")
	}
}
