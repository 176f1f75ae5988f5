package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wealthpath/goalengine/internal/api"
	"github.com/wealthpath/goalengine/internal/assumptions"
	"github.com/wealthpath/goalengine/internal/cache"
	"github.com/wealthpath/goalengine/internal/config"
	"github.com/wealthpath/goalengine/internal/engine"
	"github.com/wealthpath/goalengine/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: os.Getenv("LOG_PRETTY") == "true"})
	logger.Info().Msg("starting goal probability engine")

	assumptionProvider, err := assumptions.New(cfg.AssumptionsOverridesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load assumption overrides")
	}

	resultCache := cache.New(cache.Config{
		MaxEntries: cfg.CacheMaxEntries,
		TTL:        time.Duration(cfg.CacheTTLSeconds) * time.Second,
		Disabled:   cfg.CacheDisabled,
	}, logger)

	cacheSnapshotPath := filepath.Join(cfg.CacheDir, cfg.CacheFile)
	resultCache.Load(cacheSnapshotPath)

	autosaver := cache.NewAutoSaver(resultCache, cacheSnapshotPath, time.Duration(cfg.CacheSaveIntervalSeconds)*time.Second)
	autosaver.Start()

	eng := engine.New(cfg, assumptionProvider, resultCache, logger)
	router := api.NewRouter(eng, resultCache, logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down, attempting final cache snapshot")
	autosaver.Shutdown(5 * time.Second)
}
