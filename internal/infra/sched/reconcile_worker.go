package sched

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"photobooth-reconcile/internal/infra/logging"
	"photobooth-reconcile/internal/infra/metrics"
	red "photobooth-reconcile/internal/infra/redis"
	"photobooth-reconcile/internal/usecase"
)

// ReconcileWorker periodically runs the settlement sweep. This covers
// payments whose webhook never arrived or whose process crashed
// mid-confirm; each tick is a full, independently re-runnable sweep.
type ReconcileWorker struct {
	uc       *usecase.ReconcileUseCase
	locker   red.Locker // nil when redis is not configured
	interval time.Duration
	window   time.Duration // how far back each sweep looks
	limit    int
	log      *zerolog.Logger
}

const sweepLockKey = "reconcile:sweep"

func NewReconcileWorker(uc *usecase.ReconcileUseCase, locker red.Locker, interval, window time.Duration, limit int, logger *zerolog.Logger) *ReconcileWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	if limit <= 0 {
		limit = 200
	}
	l := logger.With().Str("component", "ReconcileWorker").Logger()
	return &ReconcileWorker{uc: uc, locker: locker, interval: interval, window: window, limit: limit, log: &l}
}

func (w *ReconcileWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting reconcile worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping reconcile worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ReconcileWorker) tick(ctx context.Context) {
	ctx = logging.WithRunID(ctx, uuid.NewString())
	log := logging.With(ctx, w.log)

	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, sweepLockKey, w.interval)
		if err != nil {
			log.Warn().Err(err).Msg("sweep lock busy; skipping tick")
			return
		}
		defer func() {
			if uerr := w.locker.Unlock(ctx, sweepLockKey, token); uerr != nil {
				log.Warn().Err(uerr).Msg("sweep unlock failed")
			}
		}()
	}

	since := time.Now().Add(-w.window)
	report, err := w.uc.Sweep(ctx, since, w.limit)
	if err != nil {
		log.Error().Err(err).Msg("sweep failed")
		return
	}
	ReportMetrics(report, "sweep")
	log.Info().Str("summary", report.Summary()).Msg("sweep tick done")
}

// ReportMetrics mirrors a run's counters into Prometheus.
func ReportMetrics(r *usecase.RunReport, source string) {
	metrics.IncReconcileRun(source)
	metrics.AddCandidateOutcome("granted", r.Granted)
	metrics.AddCandidateOutcome("skipped", r.Skipped)
	metrics.AddCandidateOutcome("user_not_found", r.UserNotFound)
	metrics.AddCandidateOutcome("not_paid", r.NotPaid)
}
