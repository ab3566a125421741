package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voyagen/lulutv/internal/config"
	"github.com/voyagen/lulutv/internal/log"
	"github.com/voyagen/lulutv/internal/models"
	"github.com/voyagen/lulutv/internal/service"
)

// Catalog serves channel listings and aggregations.
type Catalog interface {
	List(ctx context.Context, p service.ListParams) ([]models.ChannelView, error)
	Count(ctx context.Context, q string) (int, error)
	Summary(ctx context.Context) (service.Summary, error)
	Sample(ctx context.Context, n int) (service.SampleReport, error)
}

// Jobs controls the bulk validation job.
type Jobs interface {
	Start(forceRefresh bool) (models.JobState, error)
	Status() service.JobStatus
}

// Taxonomy serves the language and country indexes.
type Taxonomy interface {
	Languages(ctx context.Context, q string, refresh bool) ([]models.Language, error)
	Language(ctx context.Context, code string) (*models.Language, error)
	Countries(ctx context.Context, q string, refresh bool) ([]models.Country, error)
	Country(ctx context.Context, code string) (*models.Country, error)
	Subdivision(ctx context.Context, country, sub string) (*models.Subdivision, error)
	City(ctx context.Context, city string) (*models.City, error)
}

// Server holds dependencies for the HTTP API.
type Server struct {
	cfg      *config.Config
	catalog  Catalog
	jobs     Jobs
	taxonomy Taxonomy
	router   chi.Router
}

// New creates a Server and registers routes.
func New(cfg *config.Config, catalog Catalog, jobs Jobs, taxonomy Taxonomy) *Server {
	s := &Server{cfg: cfg, catalog: catalog, jobs: jobs, taxonomy: taxonomy}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(withRequestLogContext)
	r.Use(withAccessLog)
	r.Use(middleware.Recoverer)
	r.Use(withCORS(s.cfg.AllowedOrigins))

	r.Get("/api/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/docs", handleSwaggerUI)
	r.Get("/api/docs/openapi.yaml", handleOpenAPISpec)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/channels", func(r chi.Router) {
			r.With(validateRateLimit()).Post("/validate-all", s.handleValidateAll)
			r.Get("/validate-status", s.handleValidateStatus)
			r.Get("/count", s.handleCountChannels)
			r.Get("/summary", s.handleSummary)
			r.Get("/", s.handleListChannels)
		})
		r.Get("/debug/sample", s.handleDebugSample)

		r.Get("/languages", s.handleListLanguages)
		r.Get("/languages/{code}", s.handleGetLanguage)
		r.Get("/countries", s.handleListCountries)
		r.Get("/countries/{country}", s.handleGetCountry)
		r.Get("/countries/{country}/subdivisions/{sub}", s.handleGetSubdivision)
		r.Get("/cities/{city}", s.handleGetCity)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusNotFound, errors.New("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	logger := log.WithComponent("server")
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s,
		// Listing with validate=true probes a whole page before responding.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("event", "server.shutdown_failed").Msg("server shutdown")
		}
	}()

	logger.Info().Str("event", "server.listening").Str("addr", addr).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
