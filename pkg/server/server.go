package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/viralcraft/core/internal/config"
	"github.com/viralcraft/core/pkg/cache"
	"github.com/viralcraft/core/pkg/database"
	"github.com/viralcraft/core/pkg/database/pool"
	"github.com/viralcraft/core/pkg/handlers/batch"
	"github.com/viralcraft/core/pkg/handlers/generate"
	"github.com/viralcraft/core/pkg/handlers/health"
	"github.com/viralcraft/core/pkg/handlers/scheduledjobs"
	"github.com/viralcraft/core/pkg/jobs"
	"github.com/viralcraft/core/pkg/logger"
	"github.com/viralcraft/core/pkg/middleware"
	"github.com/viralcraft/core/pkg/models"
	"github.com/viralcraft/core/pkg/safeguards"
	"github.com/viralcraft/core/pkg/services"
)

// Server represents the API server
type Server struct {
	router    *http.ServeMux
	port      string
	logger    *logger.Logger
	dbPool    *pgxpool.Pool
	queries   *database.Queries
	scheduler *jobs.Scheduler
	handlers  struct {
		health        *health.Handler
		generate      *generate.Handler
		batch         *batch.Handler
		scheduledjobs *scheduledjobs.Handler
	}
}

// New creates a new server instance
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	dbPool, err := pool.New(context.Background(), cfg.DatabaseURL(), pool.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := testDatabaseConnection(dbPool, log); err != nil {
		dbPool.Close()
		return nil, err
	}

	queries := database.New(dbPool)
	gate := safeguards.NewGate(cfg.Safeguards)

	modelClient := services.NewOpenAIModelClient(cfg.OpenAI)
	generator := services.NewContentGenerator(modelClient, cfg.OpenAI.PrimaryModel, cfg.OpenAI.FallbackModel)
	webhooks := services.NewWebhookService(cfg.Webhook)
	pipeline := services.NewUnifiedPipeline(generator, webhooks, queries)

	executor := jobs.NewExecutor(queries, pipeline, gate)
	scheduler := jobs.NewScheduler(queries, executor, gate)

	contentCache := cache.New[models.GeneratedContent](cache.DefaultConfig())

	server := &Server{
		router:    http.NewServeMux(),
		port:      cfg.Server.Port,
		logger:    log,
		dbPool:    dbPool,
		queries:   queries,
		scheduler: scheduler,
	}

	server.handlers.health = health.NewHandler(log)
	server.handlers.generate = generate.NewHandler(generator, webhooks, queries, gate, contentCache, log)
	server.handlers.batch = batch.NewHandler(pipeline, gate, log)
	server.handlers.scheduledjobs = scheduledjobs.NewHandler(queries, scheduler, executor, log)

	server.setupRoutes()

	log.Info().
		Str("action", "db_connected").
		Msg("Database connection pool established with production settings")

	return server, nil
}

// Scheduler exposes the cron lifecycle manager so main can initialize it from
// persisted jobs and drain it on shutdown.
func (s *Server) Scheduler() *jobs.Scheduler {
	return s.scheduler
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", middleware.CORS(s.handlers.health.HealthCheck))

	// Simple root endpoint
	s.router.HandleFunc("/", middleware.CORS(func(w http.ResponseWriter, r *http.Request) {
		if _, err := fmt.Fprintf(w, "ViralCraft API Service - OK (Database Connected)"); err != nil {
			http.Error(w, "Failed to write response", http.StatusInternalServerError)
		}
	}))

	// CORS preflight for the method-scoped API routes below
	s.router.HandleFunc("OPTIONS /api/", middleware.CORS(func(w http.ResponseWriter, r *http.Request) {}))

	// Content generation endpoints
	s.router.HandleFunc("POST /api/generate-content", middleware.CORS(s.handlers.generate.Generate))
	s.router.HandleFunc("POST /api/daily-batch", middleware.CORS(s.handlers.batch.Run))

	// Scheduled bulk-generation endpoints
	s.router.HandleFunc("GET /api/scheduled-bulk/jobs", middleware.CORS(s.handlers.scheduledjobs.List))
	s.router.HandleFunc("POST /api/scheduled-bulk/jobs", middleware.CORS(s.handlers.scheduledjobs.Create))
	s.router.HandleFunc("PUT /api/scheduled-bulk/jobs/{id}", middleware.CORS(s.handlers.scheduledjobs.Update))
	s.router.HandleFunc("DELETE /api/scheduled-bulk/jobs/{id}", middleware.CORS(s.handlers.scheduledjobs.Delete))
	s.router.HandleFunc("POST /api/scheduled-bulk/jobs/{id}/trigger", middleware.CORS(s.handlers.scheduledjobs.Trigger))
	s.router.HandleFunc("POST /api/scheduled-bulk/emergency-stop", middleware.CORS(s.handlers.scheduledjobs.EmergencyStop))
	s.router.HandleFunc("GET /api/scheduled-bulk/cron-status", middleware.CORS(s.handlers.scheduledjobs.CronStatus))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().
		Str("action", "server_start").
		Str("port", s.port).
		Msg("Starting API server with database connection")

	if err := http.ListenAndServe(":"+s.port, s.router); err != nil {
		return fmt.Errorf("server failed to start on port %s: %w", s.port, err)
	}

	return nil
}

// Close gracefully shuts down the server and closes database connections
func (s *Server) Close() {
	if s.dbPool != nil {
		s.dbPool.Close()
		s.logger.Info().Msg("Database connection pool closed")
	}
}

// testDatabaseConnection tests the database connection with retry logic
func testDatabaseConnection(dbPool *pgxpool.Pool, log *logger.Logger) error {
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := dbPool.Ping(ctx)
		cancel()

		if err == nil {
			return nil
		}

		if i == maxRetries-1 {
			return fmt.Errorf("failed to ping database after %d retries: %w", maxRetries, err)
		}

		log.Warn().
			Err(err).
			Int("attempt", i+1).
			Str("action", "db_ping_retry").
			Msg("Retrying database connection")
		time.Sleep(2 * time.Second)
	}

	return nil
}
