// Package metrics holds the service's Prometheus instruments, exposed
// on /metrics by the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsCreated counts sessions opened by lecturers.
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_sessions_created_total",
		Help: "Number of attendance sessions created.",
	})

	// SessionsTerminated counts explicit and auto terminations.
	SessionsTerminated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_sessions_terminated_total",
		Help: "Number of sessions ended, by trigger.",
	}, []string{"trigger"})

	// Checkins counts check-in attempts by outcome: ok, duplicate,
	// expired, inactive, not_found, invalid, error.
	Checkins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_checkins_total",
		Help: "Number of check-in attempts, by outcome.",
	}, []string{"result"})

	// QRRendered counts QR images served to lecturer dashboards.
	QRRendered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_qr_rendered_total",
		Help: "Number of QR code images rendered.",
	})
)
