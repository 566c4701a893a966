package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	grpcapi "boardgame-rental-backend/internal/api/grpc"
	httpapi "boardgame-rental-backend/internal/api/http"
	"boardgame-rental-backend/internal/broadcast"
	"boardgame-rental-backend/internal/config"
	"boardgame-rental-backend/internal/jobs"
	"boardgame-rental-backend/internal/logger"
	"boardgame-rental-backend/internal/repository"
	"boardgame-rental-backend/internal/repository/memory"
	"boardgame-rental-backend/internal/repository/postgres"
	"boardgame-rental-backend/internal/scheduler"
	"boardgame-rental-backend/internal/security"
	"boardgame-rental-backend/internal/service"
)

// store is what both repository implementations offer.
type store interface {
	repository.Transactor
	Ping(ctx context.Context) error
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Board Game Rental Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http", cfg.GetServerAddress(), "grpc", cfg.GetGRPCAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Repositories
	st, repos, closeStore := openStore(ctx, cfg)
	defer closeStore()

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	// Initialize Broadcast
	hub := broadcast.NewHub(cfg.Broadcast.SubscriberBuffer)
	sinks := []broadcast.Sink{hub}
	if cfg.Broadcast.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Broadcast.RedisAddr})
		defer rdb.Close()
		relay := broadcast.NewRedisRelay(rdb, cfg.Broadcast.RedisChannel, hub)
		sinks = append(sinks, relay)
		go func() {
			if err := relay.RunWithRetry(ctx, time.Second, 30*time.Second); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Redis relay stopped", "error", err)
			}
		}()
		logger.Info("Cross-instance broadcast enabled", "redis", cfg.Broadcast.RedisAddr,
			"channel", cfg.Broadcast.RedisChannel, "instance", relay.InstanceID())
	}
	outbox := broadcast.NewOutbox(cfg.Broadcast.QueueSize, sinks...)
	outbox.Start()

	// Initialize Services
	inventorySvc := service.NewInventoryService(st, repos, outbox)
	rentalSvc := service.NewRentalService(st, repos, outbox)
	orderSvc := service.NewOrderService(st, repos, outbox)
	authSvc := service.NewAuthService(repos, tokenManager)
	snapshotSvc := service.NewSnapshotService(st)

	if cfg.Bootstrap.AdminEmail != "" {
		if _, err := authSvc.EnsureAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
			log.Fatalf("Failed to bootstrap administrator: %v", err)
		}
	}

	// Initialize Scheduler
	var cronScheduler *scheduler.Scheduler
	if !cfg.Scheduler.Disabled {
		jobRunner := jobs.NewJobRunner(&jobs.Services{Order: orderSvc}, cfg)
		cronScheduler = scheduler.NewScheduler(jobRunner)
		cronScheduler.Start()
	} else {
		logger.Info("In-process scheduler disabled; run cmd/cronjob for order expiry")
	}

	// Set up gRPC server
	grpcServer, healthServer := grpcapi.NewServer()
	go grpcapi.WatchHealth(ctx, healthServer, st, 15*time.Second)
	if cfg.Server.GRPCPort != 0 {
		lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
			log.Fatalf("Failed to listen: %v", err)
		}
		go func() {
			logger.Info("gRPC health server listening", "address", cfg.GetGRPCAddress())
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("Failed to serve gRPC", "error", err)
			}
		}()
	}

	// Set up HTTP server
	limiter := httpapi.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup(10000)
			}
		}
	}()

	router := httpapi.NewRouter(httpapi.Deps{
		Inventory:    inventorySvc,
		Rentals:      rentalSvc,
		Orders:       orderSvc,
		Auth:         authSvc,
		Snapshots:    snapshotSvc,
		TokenManager: tokenManager,
		Hub:          hub,
		RateLimiter:  limiter,
	})
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if cronScheduler != nil {
		cronScheduler.Stop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	grpcServer.GracefulStop()
	// Pending events drain before subscribers are dropped.
	outbox.Close()
	hub.Close()
	logger.Info("Server stopped. Goodbye!")
}

func openStore(ctx context.Context, cfg *config.Config) (store, repository.Repositories, func()) {
	if cfg.Store.Driver == "memory" {
		logger.Warn("Using in-memory store; data is lost on restart")
		s := memory.NewStore()
		return s, s.Repositories, func() {}
	}

	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db := openDatabase(ctx, cfg)
	s := postgres.NewStore(db)
	return s, s.Repositories, func() { db.Close() }
}

func openDatabase(ctx context.Context, cfg *config.Config) *sql.DB {
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxOpenConns)
	}

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		logger.Info("Database schema is up to date")
	}
	return db
}
