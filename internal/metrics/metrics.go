// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "qrattend"

var (
	AttendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attendance_marks_total",
		Help:      "Attendance marks written, by present value.",
	}, []string{"present"})

	RosterImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "roster_import_rows_total",
		Help:      "Roster rows seen by the importer, by outcome.",
	}, []string{"outcome"})

	CredentialsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credentials_issued_total",
		Help:      "QR credentials issued or re-issued.",
	})

	CredentialCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credential_cache_lookups_total",
		Help:      "Credential cache lookups, by result.",
	}, []string{"result"})

	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Identity registration attempts, by outcome.",
	}, []string{"outcome"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Bool renders a label value for a boolean.
func Bool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
