package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/voyagen/lulutv/internal/cache"
	"github.com/voyagen/lulutv/internal/config"
	"github.com/voyagen/lulutv/internal/fetcher"
	"github.com/voyagen/lulutv/internal/log"
	"github.com/voyagen/lulutv/internal/probe"
	"github.com/voyagen/lulutv/internal/server"
	"github.com/voyagen/lulutv/internal/service"
	"github.com/voyagen/lulutv/internal/store"
	"github.com/voyagen/lulutv/internal/taxonomy"
)

const validateLockTTL = time.Minute

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use environment variables")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log.Configure(log.Config{Level: cfg.LogLevel})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snapshots, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "startup.store_failed").Msg("taxonomy store")
	}
	defer closeStore()

	var manifests fetcher.Source = fetcher.NewHTTPSource(cfg.UserAgent, cfg.Timeout)
	var lock service.RunLock

	// Connect to Redis if REDIS_URL is configured.
	if cfg.RedisURL != "" {
		rds, err := cache.New(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Str("event", "startup.redis_failed").Msg("redis")
		}
		defer rds.Close()
		if err := rds.Ping(ctx); err != nil {
			logger.Fatal().Err(err).Str("event", "startup.redis_failed").Msg("redis ping")
		}

		manifests = cache.NewCachedSource(manifests, rds, cfg.ManifestCacheTTL)
		snapshots = store.NewCachedStore(snapshots, rds)
		lock = cache.NewJobLock(rds, cache.Key("lock", "validate-all"), validateLockTTL)
		logger.Info().Str("event", "startup.redis").Msg("redis connected (caching enabled)")
	} else {
		logger.Info().Str("event", "startup.redis").Msg("redis disabled (REDIS_URL not set)")
	}

	channels := cache.NewChannelCache(manifests, cfg.ChannelIndexURL, cfg.CacheTTL)
	results := cache.NewResultCache()
	prober := probe.New(nil, cfg.UserAgent, cfg.ProbeTimeout)
	validator := service.NewValidator(ctx, channels, prober, results, service.ValidatorConfig{
		Concurrency: cfg.ValidateConcurrency,
		Freshness:   cfg.CacheTTL,
		Lock:        lock,
	})
	tax := service.NewTaxonomy(snapshots, manifests, taxonomy.NewResolver(), cfg.LanguageIndexURL, cfg.CountryIndexURL)
	catalog := service.NewCatalog(channels, results, validator, manifests, tax)

	go preload(ctx, channels, tax)

	srv := server.New(cfg, catalog, validator, tax)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error().Err(err).Str("event", "server.failed").Msg("server")
		stop()
		validator.Wait()
		os.Exit(1)
	}
	validator.Wait()
	logger.Info().Str("event", "shutdown.complete").Msg("bye")
}

// openStore returns the Postgres snapshot store when DATABASE_URL is set,
// else the file store under DataDir.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	logger := log.WithComponent("main")
	if cfg.DatabaseURL == "" {
		logger.Info().Str("event", "startup.store").Str("dir", cfg.DataDir).Msg("using file snapshot store")
		return store.NewFileStore(cfg.DataDir), func() {}, nil
	}

	if err := store.WaitReady(ctx, cfg.DatabaseURL, 10); err != nil {
		return nil, nil, fmt.Errorf("db not ready: %w", err)
	}
	if err := store.RunMigrations(cfg.DatabaseURL, migrationsPath(cfg.MigrationsPath)); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	logger.Info().Str("event", "startup.store").Msg("using postgres snapshot store")
	return pg, pg.Close, nil
}

// migrationsPath resolves a relative file:// migrations directory against the
// working directory, then the executable's directory.
func migrationsPath(path string) string {
	dir, ok := strings.CutPrefix(path, "file://")
	if !ok || filepath.IsAbs(dir) {
		return path
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	if _, err := os.Stat(abs); err != nil {
		if exe, e := os.Executable(); e == nil {
			abs = filepath.Join(filepath.Dir(exe), dir)
		}
	}
	return "file://" + abs
}

// preload warms the taxonomy snapshots and the channel index. Nothing is
// validated here; failures only get logged.
func preload(ctx context.Context, channels *cache.ChannelCache, tax *service.Taxonomy) {
	logger := log.WithComponent("main")
	if _, err := tax.Languages(ctx, "", false); err != nil {
		logger.Warn().Err(err).Str("event", "preload.languages_failed").Msg("preload languages")
	}
	if _, err := tax.Countries(ctx, "", false); err != nil {
		logger.Warn().Err(err).Str("event", "preload.countries_failed").Msg("preload countries")
	}
	snap, err := channels.Load(ctx, false)
	if err != nil {
		logger.Warn().Err(err).Str("event", "preload.channels_failed").Msg("preload channels")
		return
	}
	logger.Info().Str("event", "preload.done").Int("channels", len(snap.Records)).Msg("channel index loaded")
}
