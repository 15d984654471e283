package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pastebox_uploads_total",
		Help: "Uploaded files by owner kind and result.",
	}, []string{"kind", "result"})

	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pastebox_resolutions_total",
		Help: "Record resolutions by outcome.",
	}, []string{"result"})

	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pastebox_downloads_total",
		Help: "Download URL issuance by outcome.",
	}, []string{"result"})

	lazyExpiryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastebox_lazy_expiry_total",
		Help: "Records flipped to expired on access.",
	})

	sweepUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pastebox_sweep_updates_total",
		Help: "Records changed by the expiry sweep.",
	}, []string{"action"})

	shortCodeCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastebox_short_code_collisions_total",
		Help: "Minted short codes that were already taken.",
	})
)

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isKind(err, ErrNotFound):
		return "not_found"
	case isKind(err, ErrGone):
		return "gone"
	case isKind(err, ErrExpired):
		return "expired"
	case isKind(err, ErrUnavailable):
		return "unavailable"
	case isKind(err, ErrPasswordRequired), isKind(err, ErrIncorrectPassword):
		return "denied"
	case isKind(err, ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
