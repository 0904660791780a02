package runreaper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/risk-service/risk_service/internal/domain/repositories"
	"github.com/risk-service/risk_service/pkg/logger"
)

// Reaper periodically fails risk runs stuck in PENDING or RUNNING. A run can
// strand there when the process dies before its terminal transition; the
// sweep restores the single-terminal-transition invariant.
type Reaper struct {
	runs      repositories.RiskRunRepository
	staleness time.Duration
	schedule  string
	cron      *cron.Cron
	logger    *logger.Logger
}

// New creates a reaper that fails runs older than staleness on the given
// cron schedule.
func New(runs repositories.RiskRunRepository, staleness time.Duration, schedule string, logger *logger.Logger) *Reaper {
	return &Reaper{
		runs:      runs,
		staleness: staleness,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start registers the sweep job and starts the scheduler
func (r *Reaper) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, r.sweep); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("Run reaper started", "schedule", r.schedule, "staleness", r.staleness.String())
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (r *Reaper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("Run reaper stopped")
}

// Sweep runs one sweep immediately. Exposed for startup recovery so runs
// stranded by the previous process fail without waiting for the schedule.
func (r *Reaper) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-r.staleness)
	return r.runs.FailStale(ctx, cutoff, "risk run timed out: exceeded maximum execution time")
}

func (r *Reaper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := r.Sweep(ctx)
	if err != nil {
		r.logger.Error("Stale run sweep failed", "error", err)
		return
	}
	if count > 0 {
		r.logger.Warn("Failed stale risk runs", "count", count)
	}
}
