package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"camrent-backend/internal/availability"
	"camrent-backend/internal/bootstrap"
	"camrent-backend/internal/config"
	"camrent-backend/internal/jobs"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/metrics"
	"camrent-backend/internal/scheduler"
	"camrent-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	envFile := flag.String("env-file", ".env", "Optional .env file loaded before the configuration")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'reconcile-capacity', 'all-nightly', 'all-monthly')")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Camrent Cronjob Runner...", "log_level", cfg.Log.Level)
	metrics.Register()

	ctx := context.Background()

	// The cron process has no subscribers, so change signals are dropped.
	store, db, err := bootstrap.OpenStore(ctx, cfg, nil)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	// Initialize Services
	clock := service.SystemClock(cfg.Location())
	calc := availability.NewCalculator(cfg.Availability.HorizonDays)
	jobServices := &jobs.Services{
		Reconciler: service.NewCapacityReconciler(store, calc, clock, service.NewKeyedMutex()),
		Notifier:   bootstrap.Notifier(ctx, cfg, store),
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store, jobServices, cfg, clock)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "reconcile-capacity":
		jobRunner.ReconcileCapacity()
	case "remind-overtime":
		jobRunner.RemindOvertime()
	case "export-status-log":
		jobRunner.ExportStatusLog()
	case "all-nightly":
		jobRunner.RunAllNightlyJobs()
	case "all-monthly":
		jobRunner.RunAllMonthlyJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - reconcile-capacity\n")
		fmt.Printf("  - remind-overtime\n")
		fmt.Printf("  - export-status-log\n")
		fmt.Printf("  - all-nightly\n")
		fmt.Printf("  - all-monthly\n")
		os.Exit(1)
	}
}
