package service

import (
	"context"
	"fmt"

	"PasteBox/model"
)

const sweepBatchSize = 200

// SweepReport summarizes one reconciliation pass.
type SweepReport struct {
	Scanned int
	Expired int
	Rearmed int
	Purged  int
	Failed  int
}

// Updated is the number of records whose row changed in place.
func (r SweepReport) Updated() int { return r.Expired + r.Rearmed }

// ReconcileAllExpiry walks every record, expires the overdue ones, re-arms
// open-ended ones when configured and purges old tombstones. Each change is
// a guarded write so concurrent traffic is never overwritten.
func (s *FileService) ReconcileAllExpiry(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := s.now()
	notHasExpiry := false

	err := s.records.FindAll(ctx, sweepBatchSize, func(batch []model.FileRecord) error {
		for i := range batch {
			rec := &batch[i]
			report.Scanned++

			if rec.Status == model.StatusDeleted {
				if s.opts.TombstoneRetention > 0 && rec.DeletingAt == nil &&
					rec.UpdatedAt.Before(now.Add(-s.opts.TombstoneRetention)) {
					if err := s.records.DeleteByID(ctx, rec.ID); err != nil {
						report.Failed++
						s.log.Warn("purge tombstone failed", "file_id", rec.ID, "err", err)
						continue
					}
					report.Purged++
					sweepUpdatesTotal.WithLabelValues("purge").Inc()
				}
				continue
			}

			next, action := s.policy.Reconcile(*rec, now)
			var (
				ok  bool
				err error
			)
			switch action {
			case ReconcileExpire:
				ok, err = s.records.UpdateFields(ctx, rec.ID,
					Guard{Statuses: []model.Status{rec.Status}, ExpiresAtBefore: &now},
					map[string]interface{}{"status": model.StatusExpired})
			case ReconcileRearm:
				ok, err = s.records.UpdateFields(ctx, rec.ID,
					Guard{Statuses: []model.Status{rec.Status}, HasExpiry: &notHasExpiry},
					map[string]interface{}{"expires_at": *next.ExpiresAt})
			default:
				continue
			}
			if err != nil {
				report.Failed++
				s.log.Warn("reconcile record failed", "file_id", rec.ID, "action", action.String(), "err", err)
				continue
			}
			if !ok {
				continue
			}
			sweepUpdatesTotal.WithLabelValues(action.String()).Inc()
			if action == ReconcileExpire {
				report.Expired++
				s.cancelExpiry(ctx, rec.ID)
			} else {
				report.Rearmed++
				s.scheduleExpiry(ctx, &next)
			}
		}
		return ctx.Err()
	})
	if err != nil {
		return report, fmt.Errorf("sweep records: %w", err)
	}
	s.log.Info("expiry sweep done", "scanned", report.Scanned, "expired", report.Expired,
		"rearmed", report.Rearmed, "purged", report.Purged, "failed", report.Failed)
	return report, nil
}

// ExpireByID applies lazy expiry to one record. It reports whether this call
// performed the transition.
func (s *FileService) ExpireByID(ctx context.Context, id string) (bool, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	now := s.now()
	if rec.Status != model.StatusActive || !rec.ExpiredAt(now) {
		return false, nil
	}
	return s.expireIfActive(ctx, rec, now)
}
