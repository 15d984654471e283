package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"PasteBox/internal/repo"
	"PasteBox/internal/service"
)

// Locker is a cluster-wide mutex. Lock returns repo.ErrLockBusy when held elsewhere.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

// Reconciler runs one expiry pass over all records.
type Reconciler interface {
	ReconcileAllExpiry(ctx context.Context) (service.SweepReport, error)
}

// Sweeper runs the expiry reconciliation on a fixed interval. Only the
// instance holding the lock sweeps in a given tick.
type Sweeper struct {
	reconciler Reconciler
	lock       Locker
	interval   time.Duration
	log        *slog.Logger
}

func NewSweeper(reconciler Reconciler, lock Locker, interval time.Duration, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{reconciler: reconciler, lock: lock, interval: interval, log: log.With("component", "sweeper")}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("sweep failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce sweeps if the lock is free. ran is false when another instance holds it.
func (s *Sweeper) RunOnce(ctx context.Context) (report service.SweepReport, ran bool, err error) {
	if s.lock != nil {
		if err := s.lock.Lock(ctx); err != nil {
			if errors.Is(err, repo.ErrLockBusy) {
				s.log.Debug("sweep skipped, lock held")
				return report, false, nil
			}
			return report, false, err
		}
		defer func() {
			if uerr := s.lock.Unlock(context.WithoutCancel(ctx)); uerr != nil {
				s.log.Warn("sweep unlock failed", "err", uerr)
			}
		}()
	}
	start := time.Now()
	report, err = s.reconciler.ReconcileAllExpiry(ctx)
	if err != nil {
		return report, true, err
	}
	s.log.Info("sweep done",
		"scanned", report.Scanned,
		"expired", report.Expired,
		"rearmed", report.Rearmed,
		"purged", report.Purged,
		"failed", report.Failed,
		"took", time.Since(start))
	return report, true, nil
}
