package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/snarg/tubescribe/internal/api"
	"github.com/snarg/tubescribe/internal/cache"
	"github.com/snarg/tubescribe/internal/captions"
	"github.com/snarg/tubescribe/internal/config"
	"github.com/snarg/tubescribe/internal/gate"
	"github.com/snarg/tubescribe/internal/media"
	"github.com/snarg/tubescribe/internal/metrics"
	"github.com/snarg/tubescribe/internal/pipeline"
	"github.com/snarg/tubescribe/internal/store"
	"github.com/snarg/tubescribe/internal/transcribe"
	"github.com/snarg/tubescribe/internal/whisperlocal"
)

var version = "dev"

// staleExtractingAge is how long an item may sit in extracting before
// startup recovery assumes the owning process died.
const staleExtractingAge = 30 * time.Minute

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env", "", "path to .env file")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "HTTP listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level")
	flag.StringVar(&overrides.DatabaseURL, "database-url", "", "Postgres connection URL")
	flag.StringVar(&overrides.RedisURL, "redis-url", "", "Redis connection URL")
	flag.StringVar(&overrides.Provider, "provider", "", "default remote transcription provider")
	flag.Parse()

	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("tubescribe starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Cache: Redis when configured, in-process fallback otherwise
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid redis url")
		}
		redisClient = redis.NewClient(opt)
		defer redisClient.Close()
	}
	tokenCache := cache.New(redisClient, "tubescribe:", log.With().Str("component", "cache").Logger())

	// Extraction state: Postgres when configured, process memory otherwise
	var (
		pipelineStore pipeline.Store
		records       api.RecordStore
		healthDB      api.HealthPinger
		pool          *pgxpool.Pool
	)
	if cfg.DatabaseURL != "" {
		db, err := store.Connect(ctx, cfg.DatabaseURL, log.With().Str("component", "store").Logger())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		if err := db.InitSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize schema")
		}
		if _, err := db.ReleaseStale(ctx, staleExtractingAge); err != nil {
			log.Warn().Err(err).Msg("failed to release stale extractions")
		}
		pipelineStore, records, healthDB, pool = db, db, db, db.Pool
	} else {
		log.Warn().Msg("no database configured, extraction state is in-memory only")
		mem := pipeline.NewMemoryStore()
		pipelineStore, records = mem, mem
	}

	prometheus.MustRegister(metrics.NewCollector(pool, tokenCache))

	// Shared gate bounding yt-dlp downloads and local inference
	g := gate.New(cfg.DownloadWorkers)

	// Local whisper
	backend := whisperlocal.HostBackend()
	if cfg.WhisperBackend != "" {
		backend = whisperlocal.Backend(cfg.WhisperBackend)
	}
	registry := whisperlocal.NewRegistry(backend, cfg.ModelCacheDir, log.With().Str("component", "whisper").Logger())

	fetcher := media.NewFetcher(media.Options{
		YTDLPPath:      cfg.YTDLPPath,
		ProxyURL:       cfg.ProxyURL,
		CookiesBrowser: cfg.CookiesBrowser,
	}, g, log.With().Str("component", "media").Logger())

	// Fallback chain: captions, local whisper, remote provider
	capt := captions.NewExtractor(g, log.With().Str("component", "captions").Logger())
	local := whisperlocal.NewTranscriber(registry, fetcher, g, cfg.WhisperModel, log)
	remote := transcribe.NewService(fetcher, transcribe.Config{
		ReplicateToken: cfg.ReplicateToken,
		SiliconFlowKey: cfg.SiliconFlowKey,
	}, cfg.Provider, log)

	orch := pipeline.NewOrchestrator(capt, local, remote, log)
	runner := pipeline.NewRunner(orch, pipelineStore, log)

	srv := api.NewServer(cfg, api.Deps{
		Runner:    runner,
		Records:   records,
		Registry:  registry,
		Cache:     tokenCache,
		DB:        healthDB,
		Version:   version,
		StartTime: startTime,
	}, log.With().Str("component", "http").Logger())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("tubescribe stopped")
}
