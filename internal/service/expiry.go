package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"PasteBox/model"
)

// maxExpiryHours bounds requested lifetimes so the deadline stays representable.
const maxExpiryHours = 24 * 365 * 100

// ReconcileAction is what a sweep does to one record.
type ReconcileAction int

const (
	ReconcileNone ReconcileAction = iota
	ReconcileExpire
	ReconcileRearm
)

func (a ReconcileAction) String() string {
	switch a {
	case ReconcileExpire:
		return "expire"
	case ReconcileRearm:
		return "rearm"
	default:
		return "none"
	}
}

// ExpiryPolicy computes deadlines and decides liveness.
type ExpiryPolicy struct {
	Now            func() time.Time
	DefaultHorizon time.Duration
	// RearmOnSweep pushes the default horizon forward on records that never
	// asked for an explicit expiry.
	RearmOnSweep bool
}

func (p *ExpiryPolicy) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// ParseHours parses a requested lifetime in hours. An empty string is nil.
func ParseHours(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	h, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: expiry hours %q is not a number", ErrInvalidInput, raw)
	}
	return &h, nil
}

// ComputeExpiry returns the deadline for a new record. Without an explicit
// positive request the default horizon applies.
func (p *ExpiryPolicy) ComputeExpiry(hasExpiry bool, hours *float64) (time.Time, error) {
	now := p.now()
	if hours != nil {
		h := *hours
		if math.IsNaN(h) || math.IsInf(h, 0) || h < 0 {
			return time.Time{}, fmt.Errorf("%w: expiry hours must be a finite non-negative number", ErrInvalidInput)
		}
		if h > maxExpiryHours {
			return time.Time{}, fmt.Errorf("%w: expiry hours exceed %d", ErrInvalidInput, maxExpiryHours)
		}
		if hasExpiry && h > 0 {
			return now.Add(hoursToDuration(h)), nil
		}
	}
	return now.Add(p.DefaultHorizon), nil
}

// Extend returns now+hours for an explicit expiry update; hours must be positive.
func (p *ExpiryPolicy) Extend(hours float64) (time.Time, error) {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return time.Time{}, fmt.Errorf("%w: expiry hours must be a positive number", ErrInvalidInput)
	}
	if hours > maxExpiryHours {
		return time.Time{}, fmt.Errorf("%w: expiry hours exceed %d", ErrInvalidInput, maxExpiryHours)
	}
	return p.now().Add(hoursToDuration(hours)), nil
}

// IsLive reports whether rec may be served at now.
func (p *ExpiryPolicy) IsLive(rec *model.FileRecord, now time.Time) bool {
	return rec.Status == model.StatusActive && !rec.ExpiredAt(now)
}

// Reconcile returns the record as a sweep at now would leave it.
func (p *ExpiryPolicy) Reconcile(rec model.FileRecord, now time.Time) (model.FileRecord, ReconcileAction) {
	switch rec.Status {
	case model.StatusDeleted, model.StatusExpired:
		return rec, ReconcileNone
	}
	if rec.ExpiredAt(now) {
		rec.Status = model.StatusExpired
		return rec, ReconcileExpire
	}
	if p.RearmOnSweep && !rec.HasExpiry {
		at := now.Add(p.DefaultHorizon)
		rec.ExpiresAt = &at
		return rec, ReconcileRearm
	}
	return rec, ReconcileNone
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
