// Package metric provides Prometheus metrics for tokentables.
package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tokentables"

// Registry holds the table metrics on a private Prometheus registry.
// It receives table events from every TokenTables it is attached to.
type Registry struct {
	reg *prometheus.Registry

	sessionsAdded     prometheus.Counter
	sessionsDestroyed *prometheus.CounterVec
	tokensAdded       prometheus.Counter
	tokensDestroyed   *prometheus.CounterVec
	tokensOrphaned    prometheus.Counter
	tokensTransferred prometheus.Counter
	storageErrors     *prometheus.CounterVec
	sweepDuration     prometheus.Histogram
	sweepExpired      *prometheus.CounterVec
}

// NewRegistry creates a registry with the table metrics and the Go
// runtime and process collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		sessionsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_added_total",
			Help:      "Sessions added to the tables",
		}),
		sessionsDestroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_destroyed_total",
			Help:      "Sessions destroyed, by reason",
		}, []string{"reason"}),
		tokensAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_added_total",
			Help:      "Transition tokens added to the tables",
		}),
		tokensDestroyed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_destroyed_total",
			Help:      "Transition tokens destroyed, by reason",
		}, []string{"reason"}),
		tokensOrphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_orphaned_total",
			Help:      "Carried tokens orphaned by the end of their session",
		}),
		tokensTransferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_transferred_total",
			Help:      "Transferable tokens handed to a new owner",
		}),
		storageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Failed storage operations, by operation",
		}, []string{"op"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of one timer sweep over a table",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		sweepExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_expired_total",
			Help:      "Entities expired by timer sweeps, by kind",
		}, []string{"kind"}),
	}

	r.reg.MustRegister(
		r.sessionsAdded,
		r.sessionsDestroyed,
		r.tokensAdded,
		r.tokensDestroyed,
		r.tokensOrphaned,
		r.tokensTransferred,
		r.storageErrors,
		r.sweepDuration,
		r.sweepExpired,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registerer exposes the underlying registry for other components' metrics.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.reg
}

// Gatherer exposes the underlying registry for scraping.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

func (r *Registry) SessionAdded() {
	r.sessionsAdded.Inc()
}

func (r *Registry) SessionDestroyed(reason string) {
	r.sessionsDestroyed.WithLabelValues(reason).Inc()
}

func (r *Registry) TokenAdded() {
	r.tokensAdded.Inc()
}

func (r *Registry) TokenDestroyed(reason string) {
	r.tokensDestroyed.WithLabelValues(reason).Inc()
}

func (r *Registry) TokenOrphaned() {
	r.tokensOrphaned.Inc()
}

func (r *Registry) TokenTransferred() {
	r.tokensTransferred.Inc()
}

func (r *Registry) StorageError(op string) {
	r.storageErrors.WithLabelValues(op).Inc()
}

func (r *Registry) SweepCompleted(elapsed time.Duration, expiredSessions, expiredTokens int) {
	r.sweepDuration.Observe(elapsed.Seconds())
	r.sweepExpired.WithLabelValues("session").Add(float64(expiredSessions))
	r.sweepExpired.WithLabelValues("token").Add(float64(expiredTokens))
}
