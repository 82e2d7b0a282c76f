package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	robfig "github.com/robfig/cron/v3"

	"github.com/leasewise/leasewise-backend/pkg/logger"
	"github.com/leasewise/leasewise-backend/pkg/metrics"
)

// ServiceParams configure the trigger service.
type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.JobMetrics
	Triggers   []Trigger
	RunOnStart bool
}

// Service runs every registered job, sequentially, each time a trigger fires.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.JobMetrics
	triggers   []Trigger
	runOnStart bool
}

// Handle identifies one started trigger loop. It is the only way to stop it.
type Handle struct {
	cron    *robfig.Cron
	cancel  context.CancelFunc
	once    sync.Once
	startup sync.WaitGroup
}

// NewService builds a trigger service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if len(params.Triggers) == 0 {
		return nil, fmt.Errorf("at least one trigger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = &Registry{}
	}
	return &Service{
		logg:       params.Logger,
		registry:   registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		triggers:   params.Triggers,
		runOnStart: params.RunOnStart,
	}, nil
}

// Start schedules the triggers and returns a handle for Stop. Jobs inherit
// ctx values; cancelling ctx or calling Stop ends the loop.
func (s *Service) Start(ctx context.Context) (*Handle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	c := robfig.New(robfig.WithChain(robfig.Recover(cronLogger{logg: s.logg, ctx: runCtx})))
	for _, trigger := range s.triggers {
		trigger := trigger
		if trigger.Schedule == nil {
			cancel()
			return nil, fmt.Errorf("trigger %q has no schedule", trigger.Name)
		}
		c.Schedule(trigger.Schedule, robfig.FuncJob(func() {
			s.RunCycle(runCtx, trigger.Name)
		}))
	}
	handle := &Handle{cron: c, cancel: cancel}
	c.Start()
	s.logg.Info(runCtx, "scheduler started")

	if s.runOnStart {
		handle.startup.Add(1)
		go func() {
			defer handle.startup.Done()
			s.RunCycle(runCtx, "startup")
		}()
	}
	go func() {
		<-runCtx.Done()
		handle.stop()
	}()
	return handle, nil
}

// Stop halts the trigger loop and waits for a running cycle to finish or for
// ctx to expire.
func (s *Service) Stop(ctx context.Context, handle *Handle) error {
	if handle == nil {
		return errors.New("scheduler handle required")
	}
	stopped := handle.stop()
	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		handle.startup.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logg.Info(ctx, "scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop is safe to call repeatedly; each call returns a context that is done
// once in-flight cron jobs have drained.
func (h *Handle) stop() context.Context {
	h.once.Do(h.cancel)
	return h.cron.Stop()
}

// RunCycle runs all jobs once under the cycle lock. A firing that finds the
// lock taken is skipped.
func (s *Service) RunCycle(ctx context.Context, trigger string) {
	ctx = s.logg.WithField(ctx, "trigger", trigger)
	token, locked, err := s.lock.Acquire(ctx)
	if err != nil {
		s.logg.Error(ctx, "scheduler lock acquire failed", err)
		return
	}
	if !locked {
		s.metrics.IncSkipped(trigger)
		s.logg.Info(ctx, "another cycle is running; skipping this firing")
		return
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx), token); relErr != nil {
			s.logg.Error(ctx, "failed to release scheduler lock", relErr)
		}
	}()

	s.logg.Info(ctx, "scheduled run starting")
	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			s.logg.Warn(ctx, "scheduled run interrupted")
			return
		}
		s.runJob(ctx, job)
	}
	s.logg.Info(ctx, "scheduled run complete")
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "scheduler.job"})
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
}

// cronLogger adapts the service logger to robfig/cron.
type cronLogger struct {
	logg *logger.Logger
	ctx  context.Context
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logg.Info(l.logg.WithFields(l.ctx, pairs(keysAndValues)), msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logg.Error(l.logg.WithFields(l.ctx, pairs(keysAndValues)), msg, err)
}

func pairs(kv []any) map[string]any {
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields[key] = kv[i+1]
	}
	return fields
}
