package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scans counts entry and exit scans by type.
	Scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safesphere_scans_total",
		Help: "Entry and exit scans recorded.",
	}, []string{"type"})

	// Incidents counts reported incidents by status; SOS alerts are "critical".
	Incidents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safesphere_incidents_total",
		Help: "Incidents reported, including SOS alerts.",
	}, []string{"status"})

	LoginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safesphere_login_failures_total",
		Help: "Login attempts rejected for a wrong password.",
	})

	// StorageErrors counts persisted blobs that failed to load or save.
	StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safesphere_storage_errors_total",
		Help: "Persisted collections that could not be read or written.",
	}, []string{"op"})
)
