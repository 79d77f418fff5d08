package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/Ridham19/GYM-flow/internal/auth"
	"github.com/Ridham19/GYM-flow/internal/config"
	"github.com/Ridham19/GYM-flow/internal/db"
	"github.com/Ridham19/GYM-flow/internal/email"
	"github.com/Ridham19/GYM-flow/internal/lock"
	"github.com/Ridham19/GYM-flow/internal/logger"
	"github.com/Ridham19/GYM-flow/internal/reservation"
	"github.com/Ridham19/GYM-flow/internal/resource"
	"github.com/Ridham19/GYM-flow/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Info("Starting GymFlow admission service", "store", cfg.StoreBackend, "lock", cfg.LockBackend)

	var (
		store     reservation.Store
		resources resource.Repository
		database  *sqlx.DB
	)
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		logger.Info("Connecting to database...")
		database, err = db.Connect(cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
		logger.Info("Migrations completed")

		store = reservation.NewRepository(database)
		resources = resource.NewRepository(database)
	default:
		logger.Warn("Using in-memory store; reservations are lost on restart")
		store = reservation.NewMemoryStore()
		resources = resource.DefaultCatalog()
	}

	var rdb *redis.Client
	if cfg.LockBackend == config.LockBackendRedis || cfg.EmailEnabled {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
	}

	var locker lock.Locker = lock.NewKeyed()
	if cfg.LockBackend == config.LockBackendRedis {
		locker = lock.NewRedis(rdb, cfg.LockTTL, cfg.LockRetryInterval)
	}

	policy, err := reservation.NewPolicyHolder(policyFrom(cfg.Facility))
	if err != nil {
		logger.Fatalf("Invalid facility policy: %v", err)
	}

	service := reservation.NewService(store, resources, policy, locker,
		reservation.WithRetries(cfg.StorageRetries, cfg.StorageRetryDelay),
		reservation.WithAuthorizer(reservation.AuthorizerFunc(func(ctx context.Context, requesterID string, r *reservation.Reservation) bool {
			return r.RequesterID == requesterID || auth.IsAdmin(ctx)
		})),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		emailService *email.Service
		notifier     reservation.Notifier
	)
	if cfg.EmailEnabled {
		emailService = email.New(rdb, cfg.EmailFrom, cfg.EmailFromName, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
		notifier = emailService
		go emailService.Start(ctx)
		logger.Info("Email worker started")
	}

	srv := server.New(cfg, server.Deps{
		Reservations: reservation.NewHandler(service, notifier),
		Resources:    resource.NewHandler(resources),
		Email:        emailService,
		Ready:        readiness(database, rdb),
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	for running := true; running; {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				reloadPolicy(policy)
				continue
			}
			logger.Infof("Received signal: %v", sig)
			running = false
		case err := <-serverErrChan:
			logger.Errorf("Server error: %v", err)
			running = false
		}
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func policyFrom(f config.Facility) reservation.Policy {
	return reservation.Policy{
		OpenHour:           f.OpenHour,
		CloseHour:          f.CloseHour,
		MinDurationMinutes: f.MinDurationMinutes,
		MaxDurationMinutes: f.MaxDurationMinutes,
	}
}

// reloadPolicy swaps in the facility policy from the environment. A bad
// policy is logged and the current one stays in force.
func reloadPolicy(holder *reservation.PolicyHolder) {
	f, err := config.LoadPolicy()
	if err == nil {
		err = holder.Replace(policyFrom(f))
	}
	if err != nil {
		logger.Error("Facility policy reload rejected", "error", err)
		return
	}
	logger.Info("Facility policy reloaded", "policy", holder.GetPolicy())
}

func readiness(database *sqlx.DB, rdb *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if database != nil {
			if err := database.PingContext(ctx); err != nil {
				return err
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return err
			}
		}
		return nil
	}
}
