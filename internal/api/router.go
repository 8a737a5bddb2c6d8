package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/distillkit/distill/internal/api/handlers"
	mw "github.com/distillkit/distill/internal/api/middleware"
	"github.com/distillkit/distill/internal/buildconfig"
	"github.com/distillkit/distill/internal/config"
	"github.com/distillkit/distill/internal/domain"
	"github.com/distillkit/distill/internal/llm"
	"github.com/distillkit/distill/internal/service"
	"github.com/distillkit/distill/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Decay        *service.DecayService
	Migration    *service.MigrationService
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	entityStore := store.NewEntityStore(db)
	extractionStore := store.NewExtractionStore(db)
	mergeStore := store.NewMergeStore(db)
	citationStore := store.NewCitationStore(db)
	stateStore := store.NewStateStore(db)
	legacyStore := store.NewLegacyStore(db)

	// Extraction provider via factory; a failed primary still leaves the
	// heuristic fallback, so imports keep working.
	provider := config.ExtractionProvider()
	primary, err := llm.NewClient(provider, config.ExtractionAPIKey())
	if err != nil {
		logger.Warn("extraction client initialization failed",
			zap.String("provider", provider), zap.Error(err))
	} else {
		logger.Info("extraction client initialized", zap.String("provider", provider))
	}

	inferenceLimiter := rate.NewLimiter(rate.Limit(config.ExtractionRPS()), 1)

	// Services
	chunkerSvc := service.NewChunkerService(logger)
	chunkerSvc.ChunkSize = config.ChunkSize()
	chunkerSvc.OverlapSize = config.ChunkOverlap()

	extractorSvc := service.NewExtractorService(primary, llm.NewHeuristicClient(), inferenceLimiter, logger)
	extractorSvc.Timeout = time.Duration(config.ExtractionTimeoutSeconds()) * time.Second

	filterSvc := service.NewFilterService(logger)
	reconcilerSvc := service.NewReconcilerService(entityStore, extractionStore, mergeStore, logger)
	scorerSvc := service.NewScorerService(entityStore, logger)
	citationSvc := service.NewCitationService(citationStore, entityStore, logger)
	decaySvc := service.NewDecayService(entityStore, stateStore, logger)
	migrationSvc := service.NewMigrationService(legacyStore, entityStore, stateStore, logger)
	importerSvc := service.NewImporterService(chunkerSvc, extractorSvc, filterSvc, reconcilerSvc, extractionStore, logger)

	// Handlers
	importHandler := handlers.NewImportHandler(importerSvc)
	entityHandler := handlers.NewEntityHandler(scorerSvc, reconcilerSvc)
	feedbackHandler := handlers.NewFeedbackHandler(scorerSvc)
	suggestionHandler := handlers.NewSuggestionHandler(reconcilerSvc)
	citationHandler := handlers.NewCitationHandler(citationSvc)
	pipelineHandler := handlers.NewPipelineHandler(decaySvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Decay:     decaySvc,
		Migration: migrationSvc,
		startTime: time.Now(),
	}

	// Metrics collector for middleware
	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/imports", importHandler.Create)

		r.Route("/entities", func(r chi.Router) {
			r.Get("/", entityHandler.List)
			r.Delete("/{id}", entityHandler.Delete)
		})

		r.Post("/feedback", feedbackHandler.Create)

		r.Route("/suggestions", func(r chi.Router) {
			r.Get("/", suggestionHandler.List)
			r.Post("/{id}/decide", suggestionHandler.Decide)
			r.Post("/{id}/snooze", suggestionHandler.Snooze)
		})

		r.Post("/citations", citationHandler.Create)

		r.Post("/pipeline/decay", pipelineHandler.TriggerDecay)
	})

	return app
}

// NewRouter returns just the chi.Mux for callers that do not manage the
// background workers.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.EntityStore      = (*store.EntityStore)(nil)
	_ domain.ExtractionStore  = (*store.ExtractionStore)(nil)
	_ domain.MergeStore       = (*store.MergeStore)(nil)
	_ domain.CitationStore    = (*store.CitationStore)(nil)
	_ domain.StateStore       = (*store.StateStore)(nil)
	_ domain.LegacyStore      = (*store.LegacyStore)(nil)
	_ domain.ExtractionClient = (*llm.OpenAIClient)(nil)
	_ domain.ExtractionClient = (*llm.AnthropicClient)(nil)
	_ domain.ExtractionClient = (*llm.HeuristicClient)(nil)
	_ domain.ExtractionClient = (*llm.MockClient)(nil)
)
