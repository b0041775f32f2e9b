package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lexflow/lexflow-api/internal/metrics"
)

const (
	autoSyncTimeout = 30 * time.Minute
	// LimiterCleanupSpec runs the rate limiter sweep every ten minutes.
	LimiterCleanupSpec = "*/10 * * * *"
	LimiterMaxIdle     = 30 * time.Minute
	// CacheCleanupSpec evicts expired in-process cache entries.
	CacheCleanupSpec = "*/5 * * * *"
)

// AutoSyncer runs the scheduled cloud export.
type AutoSyncer interface {
	AutoSync(ctx context.Context) (int, error)
}

// Sweeper drops idle entries and reports how many went.
type Sweeper interface {
	Cleanup(maxIdle time.Duration) int
}

// Scheduler wraps a cron runner with the jobs the server schedules.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

func NewScheduler(log *zap.Logger) *Scheduler {
	logger := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		log: log,
	}
}

// AddAutoSync schedules cloud auto-sync on spec. An empty spec disables it.
func (s *Scheduler) AddAutoSync(spec string, syncer AutoSyncer, m *metrics.Metrics) error {
	if spec == "" {
		s.log.Info("cloud auto-sync disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, AutoSyncJob(syncer, m, s.log)); err != nil {
		return fmt.Errorf("schedule auto-sync %q: %w", spec, err)
	}
	s.log.Info("cloud auto-sync scheduled", zap.String("spec", spec))
	return nil
}

// AddCleanup schedules a periodic sweep of idle entries.
func (s *Scheduler) AddCleanup(spec string, sw Sweeper, maxIdle time.Duration) error {
	_, err := s.cron.AddFunc(spec, func() {
		if n := sw.Cleanup(maxIdle); n > 0 {
			s.log.Debug("swept idle entries", zap.Int("removed", n))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule cleanup %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("cron jobs still running at shutdown")
	}
}

// AutoSyncJob returns the cron body for one auto-sync run.
func AutoSyncJob(syncer AutoSyncer, m *metrics.Metrics, log *zap.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), autoSyncTimeout)
		defer cancel()

		start := time.Now()
		n, err := syncer.AutoSync(ctx)
		outcome := "ok"
		if err != nil {
			outcome = "error"
			log.Error("cloud auto-sync failed", zap.Int("synced", n), zap.Error(err))
		} else {
			log.Info("cloud auto-sync finished", zap.Int("synced", n), zap.Duration("took", time.Since(start)))
		}
		if m != nil {
			m.CloudSyncRuns.WithLabelValues("cron", outcome).Inc()
		}
	}
}
