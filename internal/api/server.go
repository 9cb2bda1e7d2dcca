package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/snarg/tubescribe/internal/cache"
	"github.com/snarg/tubescribe/internal/config"
	"github.com/snarg/tubescribe/internal/metrics"
	"github.com/snarg/tubescribe/internal/pipeline"
	"github.com/snarg/tubescribe/internal/whisperlocal"
)

// Deps carries the wired components the handlers serve. DB may be nil when
// no database is configured.
type Deps struct {
	Runner    *pipeline.Runner
	Records   RecordStore
	Registry  *whisperlocal.Registry
	Cache     *cache.Cache
	DB        HealthPinger
	Version   string
	StartTime time.Time
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(cfg *config.Config, deps Deps, log zerolog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      newRouter(cfg, deps, log),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func newRouter(cfg *config.Config, deps Deps, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(metrics.InstrumentHandler)
	r.Use(CORS)

	health := NewHealthHandler(deps.DB, deps.Cache, deps.Registry, deps.Version, deps.StartTime)
	transcripts := NewTranscriptsHandler(deps.Runner, deps.Records)
	models := NewModelsHandler(deps.Registry)
	downloads := NewDownloadsHandler(deps.Records, deps.Cache)

	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.ServeHTTP)
		// The download token is its own credential.
		downloads.Routes(r)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(cfg.AuthToken))
			transcripts.Routes(r)
			models.Routes(r)
			downloads.PrepareRoutes(r)
		})
	})

	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
