// Package metrics exposes Prometheus counters for authorization and quota decisions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authzDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_denials_total",
			Help: "Number of denied authorization decisions, differentiated by reason.",
		},
		[]string{"reason"},
	)

	quotaReservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_reservations_total",
			Help: "Number of quota reservation attempts, differentiated by counter and outcome.",
		},
		[]string{"counter", "outcome"},
	)

	quotaClamps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_release_clamps_total",
			Help: "Number of quota releases clamped at zero, indicating an upstream double-release.",
		},
		[]string{"counter"},
	)
)

// AuthzDenied records a denied authorization decision.
func AuthzDenied(reason string) {
	authzDenials.WithLabelValues(reason).Inc()
}

// QuotaReserved records a successful quota reservation.
func QuotaReserved(counter string) {
	quotaReservations.WithLabelValues(counter, "reserved").Inc()
}

// QuotaDenied records a denied quota reservation.
func QuotaDenied(counter string) {
	quotaReservations.WithLabelValues(counter, "denied").Inc()
}

// QuotaClamped records a release that would have driven a counter below zero.
func QuotaClamped(counter string) {
	quotaClamps.WithLabelValues(counter).Inc()
}
