package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/viralcraft/core/internal/config"
	"github.com/viralcraft/core/pkg/database"
	"github.com/viralcraft/core/pkg/jobs"
	"github.com/viralcraft/core/pkg/safeguards"
	"github.com/viralcraft/core/pkg/services"
)

func main() {
	// Parse command line flags
	var (
		jobID = flag.Int("job", 0, "Scheduled job ID to run once")
		once  = flag.Bool("once", false, "Run the given job once and exit")
	)
	flag.Parse()

	cfg := config.Load()

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize services
	queries := database.New(db)
	gate := safeguards.NewGate(cfg.Safeguards)
	modelClient := services.NewOpenAIModelClient(cfg.OpenAI)
	generator := services.NewContentGenerator(modelClient, cfg.OpenAI.PrimaryModel, cfg.OpenAI.FallbackModel)
	webhooks := services.NewWebhookService(cfg.Webhook)
	pipeline := services.NewUnifiedPipeline(generator, webhooks, queries)

	executor := jobs.NewExecutor(queries, pipeline, gate)
	scheduler := jobs.NewScheduler(queries, executor, gate)

	// Handle single job execution
	if *once && *jobID > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		job, err := queries.GetScheduledJob(ctx, int32(*jobID))
		if err != nil {
			log.Fatalf("Failed to load scheduled job %d: %v", *jobID, err)
		}

		log.Printf("Running scheduled job %d (%s) once...", job.ID, job.Name)
		result, err := executor.Execute(ctx, job)
		if err != nil {
			log.Fatalf("Failed to execute scheduled job %d: %v", *jobID, err)
		}
		log.Printf("Scheduled job %d completed: %d items, %d tokens", job.ID, len(result.Items), result.TotalTokens)
		return
	}

	// Install cron tasks for every persisted active job
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := scheduler.InitializeFromStore(ctx); err != nil {
		cancel()
		log.Fatalf("Failed to initialize scheduled jobs: %v", err)
	}
	cancel()

	log.Printf("Cron job service started with %d tasks", len(scheduler.Status()))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down cron job service...")
	stopped := scheduler.EmergencyStopAll()
	log.Printf("Cron job service stopped (%d tasks)", stopped)
}
