package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"iconsmd/internal/cache"
	"iconsmd/internal/catalog"
	"iconsmd/internal/compose"
	"iconsmd/internal/config"
	"iconsmd/internal/metrics"
	"iconsmd/internal/scheduler"
	"iconsmd/internal/upstream"
	"iconsmd/internal/web"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	envFile := flag.String("env", ".env", "Environment file loaded before the configuration")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("iconsmd %s\nCommit: %s\nBuilt: %s\n", web.Version, web.GitCommit, web.BuildTime)
		os.Exit(0)
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.WithError(err).Warnf("Failed to load %s", *envFile)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	setupLogging(cfg.Logging)

	logrus.WithFields(logrus.Fields{
		"config_file": *configFile,
		"port":        cfg.Server.Port,
		"upstream":    cfg.Upstream.BaseURL,
		"format":      cfg.Output.Format,
	}).Info("Starting iconsmd")

	client := upstream.NewClient(cfg.Upstream)
	index := catalog.NewIndex(client)
	store := cache.New[[]byte](cfg.Cache.TTL, cache.WithShards(cfg.Cache.Shards))
	metricsCollector := metrics.NewCollector(index, store)
	compositor := compose.New(compose.FromConfig(cfg), index, client, store, metricsCollector)

	webServer := web.NewServer(cfg, index, compositor, store, metricsCollector)

	tasks := scheduler.New()
	mustAdd(tasks, scheduler.Task{
		Name:       "index-refresh",
		Interval:   cfg.Index.RefreshInterval,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			start := time.Now()
			_, err := index.Refresh(ctx)
			metricsCollector.RecordFetch("index", err, time.Since(start))
			metricsCollector.UpdateSystemMetrics()
			return err
		},
	})
	mustAdd(tasks, scheduler.Task{
		Name:     "cache-sweep",
		Interval: cfg.Cache.SweepInterval,
		Run: func(ctx context.Context) error {
			removed := store.Sweep(time.Now())
			metricsCollector.RecordSweep(removed)
			logrus.WithFields(logrus.Fields{
				"removed":   removed,
				"remaining": store.Len(),
			}).Info("Cache sweep complete")
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := tasks.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	if err := webServer.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start web server: %v", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logrus.WithField("signal", sig).Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Web server did not shut down cleanly")
	}
	cancel()
	tasks.Stop()

	logrus.Info("Shutdown complete")
}

func mustAdd(s *scheduler.Scheduler, task scheduler.Task) {
	if err := s.Add(task); err != nil {
		logrus.Fatalf("Failed to register task: %v", err)
	}
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}
