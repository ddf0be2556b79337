package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"ridehail/internal/app"
	"ridehail/internal/config"
	"ridehail/internal/handler"
	internalRedis "ridehail/internal/redis"
	"ridehail/internal/repository/postgres"
	"ridehail/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// New Relic first, so the database driver can be instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.WithError(err).Warn("failed to initialize New Relic")
		} else {
			log.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	log.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info("connected to Redis")

	server, err := wireServer(ctx, db, redisClient, nrApp, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to wire server")
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(ctx context.Context, db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, log *logrus.Logger) (*http.Server, error) {
	// Redis stores.
	traceStore := internalRedis.NewTraceStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Storage.
	store := postgres.NewStore(db, cfg.Database.TxTimeout)

	// Services.
	notificationService := service.NewNotificationService(log)
	receiptService := service.NewReceiptService(log)
	ledger := service.NewLedger(store, cfg.Ledger.CommissionRate, log)
	matchingService := service.NewMatchingService(store, lockStore, notificationService, log, cfg.Matching.CandidateLimit)
	tripService := service.NewTripService(store, ledger, traceStore, notificationService, receiptService, log)
	rideService := service.NewRideService(store, matchingService, log)
	driverService := service.NewDriverService(store, ledger, cacheStore, log)
	userService := service.NewUserService(store, ledger, log)

	// The platform commission wallet must exist before the first settlement.
	if err := ledger.EnsurePlatformWallet(ctx, cfg.Ledger.Currency); err != nil {
		return nil, err
	}

	// Handlers.
	rideHandler := handler.NewRideHandler(rideService, tripService)
	tripHandler := handler.NewTripHandler(tripService, matchingService, ledger)
	walletHandler := handler.NewWalletHandler(ledger)
	driverHandler := handler.NewDriverHandler(driverService)
	userHandler := handler.NewUserHandler(userService)

	router := app.NewRouter(app.RouterDeps{
		RideHandler:   rideHandler,
		TripHandler:   tripHandler,
		WalletHandler: walletHandler,
		DriverHandler: driverHandler,
		UserHandler:   userHandler,
		RedisClient:   redisClient,
		NewRelicApp:   nrApp,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
