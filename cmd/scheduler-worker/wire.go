package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/leasewise/leasewise-backend/internal/cron"
	"github.com/leasewise/leasewise-backend/internal/deliveries"
	"github.com/leasewise/leasewise-backend/internal/dispatch"
	"github.com/leasewise/leasewise-backend/internal/preferences"
	"github.com/leasewise/leasewise-backend/internal/rentals"
	"github.com/leasewise/leasewise-backend/internal/reports"
	"github.com/leasewise/leasewise-backend/internal/reports/pdf"
	"github.com/leasewise/leasewise-backend/internal/rollback"
	"github.com/leasewise/leasewise-backend/internal/schedules"
	"github.com/leasewise/leasewise-backend/internal/sweeps"
	"github.com/leasewise/leasewise-backend/pkg/config"
	"github.com/leasewise/leasewise-backend/pkg/db"
	"github.com/leasewise/leasewise-backend/pkg/email"
	"github.com/leasewise/leasewise-backend/pkg/logger"
	"github.com/leasewise/leasewise-backend/pkg/metrics"
	"github.com/leasewise/leasewise-backend/pkg/sms"
)

// buildService wires the four jobs behind a daily trigger for reports and an
// interval trigger for the sweeps. Every firing runs all jobs; each job is a
// no-op when it has nothing due.
func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, lock cron.Lock, reg prometheus.Registerer) (*cron.Service, error) {
	conn := dbClient.DB()
	scheduleRepo := schedules.NewRepository(conn)
	deliveryRepo := deliveries.NewRepository(conn)
	rentalRepo := rentals.NewRepository(conn)
	dispatchMetrics := metrics.NewDispatchMetrics(reg)

	dispatcher, err := dispatch.New(dispatch.Params{
		Email:              email.New(cfg.SMTP, logg),
		SMS:                sms.New(cfg.SMS, nil, logg),
		Delay:              cfg.Dispatch.Delay(),
		SendTimeout:        cfg.Scheduler.SendTimeout,
		DefaultCountryCode: cfg.Dispatch.DefaultCountryCode,
		Metrics:            dispatchMetrics,
		Logger:             logg,
	})
	if err != nil {
		return nil, err
	}

	aggregator, err := reports.NewAggregator(rentalRepo, cfg.Reports.TrailingPeriods)
	if err != nil {
		return nil, err
	}
	executor, err := reports.NewExecutor(reports.ExecutorParams{
		Schedules:     scheduleRepo,
		Deliveries:    deliveryRepo,
		Source:        rentalRepo,
		Aggregator:    aggregator,
		Renderer:      pdf.New(cfg.Reports.BrandName, nil),
		Dispatcher:    dispatcher,
		Metrics:       dispatchMetrics,
		Logger:        logg,
		BrandName:     cfg.Reports.BrandName,
		ClaimTTL:      cfg.Scheduler.ClaimTTL,
		RenderTimeout: cfg.Scheduler.RenderTimeout,
	})
	if err != nil {
		return nil, err
	}

	mode, err := sweeps.ParseMatchMode(cfg.Scheduler.MatchMode)
	if err != nil {
		return nil, err
	}
	sweepParams := sweeps.Params{
		Source:     rentalRepo,
		Flags:      sweeps.NewFlagRepository(conn),
		Dispatcher: dispatcher,
		Mode:       mode,
		BrandName:  cfg.Reports.BrandName,
		Logger:     logg,
	}
	overdue, err := sweeps.NewOverdueRentSweep(sweepParams)
	if err != nil {
		return nil, err
	}
	expiring, err := sweeps.NewLeaseExpirationSweep(sweepParams)
	if err != nil {
		return nil, err
	}

	preferenceService, err := preferences.NewService(preferences.ServiceParams{
		Repo:        preferences.NewRepository(conn),
		MaxVersions: cfg.Preferences.MaxVersions,
		Logger:      logg,
	})
	if err != nil {
		return nil, err
	}
	engine, err := rollback.NewEngine(rollback.EngineParams{
		Repo:        rollback.NewRepository(conn),
		Failures:    deliveryRepo,
		Schedules:   scheduleRepo,
		Preferences: preferenceService,
		Threshold:   cfg.Rollback.FailureThreshold,
		Logger:      logg,
	})
	if err != nil {
		return nil, err
	}

	dispatchJob, err := cron.NewReportDispatchJob(cron.ReportDispatchJobParams{
		Schedules: scheduleRepo,
		Executor:  executor,
		Logger:    logg,
	})
	if err != nil {
		return nil, err
	}
	overdueJob, err := cron.NewSweepJob(cron.JobOverdueRentSweep, overdue, nil)
	if err != nil {
		return nil, err
	}
	expiringJob, err := cron.NewSweepJob(cron.JobLeaseExpiration, expiring, nil)
	if err != nil {
		return nil, err
	}
	rollbackJob, err := cron.NewRollbackJob(engine, nil)
	if err != nil {
		return nil, err
	}
	registry, err := cron.NewRegistry(dispatchJob, overdueJob, expiringJob, rollbackJob)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}
	daily, err := cron.DailyAt("daily", cfg.Scheduler.DailyHour, cfg.Scheduler.DailyMinute, loc)
	if err != nil {
		return nil, err
	}
	interval, err := cron.Every("sweep-interval", cfg.Scheduler.SweepInterval)
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewJobMetrics(reg),
		Triggers:   []cron.Trigger{daily, interval},
		RunOnStart: cfg.Scheduler.RunOnStart,
	})
}
