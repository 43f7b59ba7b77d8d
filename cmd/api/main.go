package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/shelfwatch/shelfwatch/pkg/config"
	"github.com/shelfwatch/shelfwatch/pkg/database"
	"github.com/shelfwatch/shelfwatch/pkg/enrich"
	"github.com/shelfwatch/shelfwatch/pkg/migrations"
	"github.com/shelfwatch/shelfwatch/pkg/ollama"
	"github.com/shelfwatch/shelfwatch/pkg/parsers"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers/httpclient"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers/sources"
	"github.com/shelfwatch/shelfwatch/pkg/server"
	"github.com/shelfwatch/shelfwatch/pkg/supervisor"
	"github.com/shelfwatch/shelfwatch/pkg/version"
	"github.com/shelfwatch/shelfwatch/pkg/worker"
)

const ollamaTimeout = 2 * time.Minute

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting shelfwatch", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	if err := initLibraryDir(cfg.LibraryPath); err != nil {
		log.Err(err).Fatal("library directory error")
	}
	log.Info("library directory initialized", logger.Data{"path": cfg.LibraryPath})

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	// Check that FTS5 is available before running migrations
	err = database.CheckFTS5Support(db)
	if err != nil {
		log.Err(err).Fatal("FTS5 check failed")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	// The scrape cache is optional; scrapers fetch directly without it.
	var cache httpclient.Cache
	if cfg.RedisURL != "" {
		redisCache, err := httpclient.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			log.Err(err).Warn("redis unavailable, scrape cache disabled")
		} else {
			cache = redisCache
			defer redisCache.Close()
			log.Info("scrape cache enabled", logger.Data{"ttl": cfg.ScraperCacheTTL.String()})
		}
	}

	var generator enrich.Generator
	if client := ollama.New(ollama.Options{
		URL:         cfg.OllamaURL,
		Model:       cfg.OllamaModel,
		Temperature: cfg.OllamaTemperature,
		Timeout:     ollamaTimeout,
	}); client != nil {
		generator = client
		log.Info("ollama enrichment enabled", logger.Data{"model": cfg.OllamaModel})
	}

	scraperRegistry := sources.NewRegistry(cfg, cache)
	parserRegistry := parsers.Default()

	srv, err := server.New(cfg, db, server.Options{
		Scrapers:  scraperRegistry,
		Parsers:   parserRegistry,
		Generator: generator,
	})
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	wrkr := worker.New(cfg, db, worker.Options{
		Scrapers:  scraperRegistry,
		Parsers:   parserRegistry,
		Generator: generator,
	})
	scheduler := worker.NewScheduler(db, cfg.WatchlistInterval())

	graceful := signals.Setup()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}
		log.Info("server started", logger.Data{"addr": listener.Addr().String()})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	supCtx, stopServices := context.WithCancel(ctx)
	servicesDone := supervisor.New(wrkr, scheduler).ServeBackground(supCtx)
	log.Info("background services started")

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	stopServices()
	if err := <-servicesDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Err(err).Error("background services shutdown error")
	}
	log.Info("background services shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

// initLibraryDir creates the library directory and verifies write permissions.
func initLibraryDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create library directory: %s", dir)
	}

	// Verify write permissions by creating and removing a temp file
	testFile := filepath.Join(dir, ".write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return errors.Wrapf(err, "library directory is not writable: %s", dir)
	}
	f.Close()

	if err := os.Remove(testFile); err != nil {
		return errors.Wrapf(err, "failed to clean up write test file: %s", testFile)
	}

	return nil
}
