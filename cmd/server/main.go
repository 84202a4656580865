package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	api "camrent-backend/internal/api/grpc"
	httpapi "camrent-backend/internal/api/http"
	"camrent-backend/internal/availability"
	"camrent-backend/internal/bootstrap"
	"camrent-backend/internal/cache"
	"camrent-backend/internal/calendar"
	"camrent-backend/internal/config"
	"camrent-backend/internal/feed"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/metrics"
	"camrent-backend/internal/repository"
	"camrent-backend/internal/repository/postgres"
	"camrent-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	envFile := flag.String("env-file", ".env", "Optional .env file loaded before the configuration")
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
	logger.Info("Starting Camrent Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "grpc_address", cfg.GetServerAddress(), "http_address", cfg.GetHTTPAddress(),
		"timezone", cfg.Server.Timezone, "store", cfg.Store.Type)

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store and change feed. Store signals arrive on hub; boards listen on
	// boardHub, which only hears a signal once the cache has dropped the
	// affected snapshot.
	hub := feed.NewHub()
	boardHub := feed.NewHub()
	store, db, err := bootstrap.OpenStore(ctx, cfg, hub)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	rdb := bootstrap.Redis(cfg)
	if rdb != nil {
		defer rdb.Close()
		logger.Info("Snapshot cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.CacheTTL())
	}
	snapshots := cache.NewSnapshotCache(rdb, repository.StoreSnapshots(store), cfg.CacheTTL(), cfg.Redis.KeyPrefix)

	// Initialize Services
	clock := service.SystemClock(cfg.Location())
	calc := availability.NewCalculator(cfg.Availability.HorizonDays)
	projector, err := calendar.NewProjector(cfg.Calendar.DeliveryTime, cfg.Calendar.ReturnTime)
	if err != nil {
		log.Fatalf("Invalid calendar configuration: %v", err)
	}
	locks := service.NewKeyedMutex()
	notifier := bootstrap.Notifier(ctx, cfg, store)
	reconciler := service.NewCapacityReconciler(store, calc, clock, locks)
	reservationSvc := service.NewReservationService(store, reconciler, calc, notifier, clock, locks)
	availabilitySvc := service.NewAvailabilityService(snapshots, calc)
	calendarSvc := service.NewCalendarService(snapshots, projector)
	noteSvc := service.NewNotificationService(store.Notifications())

	// Initialize gRPC handler
	handler := api.NewReservationHandler(reservationSvc, availabilitySvc, calendarSvc, noteSvc,
		func(ctx context.Context) *feed.Board { return feed.NewBoard(ctx, boardHub, snapshots, calc, clock.Now) },
		clock)
	grpcServer, health := api.NewServer(handler)

	// Set up HTTP server
	checks := []httpapi.ReadinessCheck{{Name: "store", Ping: store.Ping}}
	if rdb != nil {
		checks = append(checks, httpapi.ReadinessCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	router := mux.NewRouter()
	httpapi.NewHandler(availabilitySvc, calendarSvc, snapshots, clock, checks...).RegisterRoutes(router)
	httpServer := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if db != nil {
		listener := postgres.NewChangeListener(cfg.GetDatabaseConnectionString(), hub)
		g.Go(func() error { return listener.Run(gctx) })
	}
	g.Go(func() error {
		snapshots.Run(gctx, hub, boardHub)
		return nil
	})
	g.Go(func() error {
		logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		logger.Info("HTTP server listening", "address", cfg.GetHTTPAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers...")
		health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", "error", err)
		}

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped with error", "error", err)
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("Camrent Backend stopped. Goodbye!")
}
