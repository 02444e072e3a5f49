// Package server assembles the dataset hub HTTP service: dataset CRUD,
// versioning, trending, recommendations and the archive publication
// workflow behind a single chi router.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/uvlhub/datahub/pkg/archive"
	"github.com/uvlhub/datahub/pkg/dataset"
	"github.com/uvlhub/datahub/pkg/recommendation"
	"github.com/uvlhub/datahub/pkg/trending"
	"github.com/uvlhub/datahub/pkg/version"
)

// Server wires the stores and services behind the HTTP API.
type Server struct {
	router    chi.Router
	db        *gorm.DB
	logger    *slog.Logger
	datasets  *dataset.Store
	versions  *version.Service
	trending  *trending.Service
	recommend *recommendation.Service
	archive   *archive.Client
	startedAt time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithArchiveClient enables the archive publication workflow against the
// given deposition API client.
func WithArchiveClient(client *archive.Client) Option {
	return func(s *Server) {
		s.archive = client
	}
}

// New creates a Server over the shared database. Call Init before
// MountRoutes.
func New(db *gorm.DB, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	datasets := dataset.NewStore(db)
	versionStore := version.NewStore(db)

	s := &Server{
		db:        db,
		logger:    logger,
		datasets:  datasets,
		versions:  version.NewService(versionStore, logger),
		trending:  trending.NewService(db),
		recommend: recommendation.NewService(datasets),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init migrates all tables.
func (s *Server) Init() error {
	if err := s.datasets.AutoMigrate(); err != nil {
		return err
	}
	if err := s.versions.Store().AutoMigrate(); err != nil {
		return err
	}
	return nil
}

// Datasets returns the dataset store.
func (s *Server) Datasets() *dataset.Store { return s.datasets }

// Versions returns the version service.
func (s *Server) Versions() *version.Service { return s.versions }

// MountRoutes builds the full router.
func (s *Server) MountRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(metricsMiddleware())

	r.Route("/datasets", func(r chi.Router) {
		r.Post("/", s.createDatasetHandler)
		r.Get("/", s.listDatasetsHandler)
		r.Route("/{datasetID}", func(r chi.Router) {
			r.Get("/", s.getDatasetHandler)
			r.Delete("/", s.deleteDatasetHandler)
			r.Post("/view", s.recordViewHandler)
			r.Post("/download", s.recordDownloadHandler)
			r.Post("/publish", s.publishDatasetHandler)
		})
	})

	version.RegisterRoutes(r, s.versions, s.datasets)
	trending.RegisterRoutes(r, s.trending)
	recommendation.RegisterRoutes(r, s.recommend)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readyHandler)

	s.router = r
	return r
}

// Router returns the mounted router.
func (s *Server) Router() chi.Router { return s.router }

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// readyHandler verifies database connectivity.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	dbStatus := "up"
	ready := true

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		dbStatus = fmt.Sprintf("down: %v", err)
		ready = false
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	writeJSON(w, status, map[string]any{
		"status":     state,
		"components": map[string]string{"database": dbStatus},
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
