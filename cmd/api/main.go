package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/leasewise/leasewise-backend/api/routes"
	"github.com/leasewise/leasewise-backend/internal/deliveries"
	"github.com/leasewise/leasewise-backend/internal/dispatch"
	"github.com/leasewise/leasewise-backend/internal/preferences"
	"github.com/leasewise/leasewise-backend/internal/rentals"
	"github.com/leasewise/leasewise-backend/internal/reports"
	"github.com/leasewise/leasewise-backend/internal/reports/pdf"
	"github.com/leasewise/leasewise-backend/internal/rollback"
	"github.com/leasewise/leasewise-backend/internal/schedules"
	"github.com/leasewise/leasewise-backend/pkg/config"
	"github.com/leasewise/leasewise-backend/pkg/db"
	"github.com/leasewise/leasewise-backend/pkg/email"
	"github.com/leasewise/leasewise-backend/pkg/instance"
	"github.com/leasewise/leasewise-backend/pkg/logger"
	"github.com/leasewise/leasewise-backend/pkg/migrate"
	"github.com/leasewise/leasewise-backend/pkg/redis"
	"github.com/leasewise/leasewise-backend/pkg/sms"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured, test-send rate limiting disabled")
	}

	services, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}

// buildServices wires the HTTP-facing services. Test sends run the same
// executor the worker uses, so the API process also needs senders.
func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	conn := dbClient.DB()
	scheduleRepo := schedules.NewRepository(conn)
	deliveryRepo := deliveries.NewRepository(conn)
	rentalRepo := rentals.NewRepository(conn)

	dispatcher, err := dispatch.New(dispatch.Params{
		Email:              email.New(cfg.SMTP, logg),
		SMS:                sms.New(cfg.SMS, nil, logg),
		Delay:              cfg.Dispatch.Delay(),
		SendTimeout:        cfg.Scheduler.SendTimeout,
		DefaultCountryCode: cfg.Dispatch.DefaultCountryCode,
		Logger:             logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	aggregator, err := reports.NewAggregator(rentalRepo, cfg.Reports.TrailingPeriods)
	if err != nil {
		return routes.Services{}, err
	}

	executor, err := reports.NewExecutor(reports.ExecutorParams{
		Schedules:     scheduleRepo,
		Deliveries:    deliveryRepo,
		Source:        rentalRepo,
		Aggregator:    aggregator,
		Renderer:      pdf.New(cfg.Reports.BrandName, nil),
		Dispatcher:    dispatcher,
		Logger:        logg,
		BrandName:     cfg.Reports.BrandName,
		ClaimTTL:      cfg.Scheduler.ClaimTTL,
		RenderTimeout: cfg.Scheduler.RenderTimeout,
	})
	if err != nil {
		return routes.Services{}, err
	}

	scheduleService, err := schedules.NewService(schedules.ServiceParams{
		Repo:       scheduleRepo,
		Properties: rentalRepo,
		Attempts:   deliveryRepo,
		Sender:     executor,
	})
	if err != nil {
		return routes.Services{}, err
	}

	preferenceService, err := preferences.NewService(preferences.ServiceParams{
		Repo:        preferences.NewRepository(conn),
		MaxVersions: cfg.Preferences.MaxVersions,
		Logger:      logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	rollbackService, err := rollback.NewService(rollback.ServiceParams{
		Repo:     rollback.NewRepository(conn),
		Restorer: preferenceService,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Schedules:   scheduleService,
		Preferences: preferenceService,
		Rollback:    rollbackService,
	}, nil
}
