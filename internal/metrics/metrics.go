// Package metrics collects and exposes Prometheus metrics for the share
// workflow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts share-workflow events. It satisfies services.ShareMetrics.
type Collector struct {
	sharesCreated        prometheus.Counter
	sharesViewed         prometheus.Counter
	shareDecisions       *prometheus.CounterVec
	sharesRevoked        prometheus.Counter
	notificationFailures prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sharesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deedflow_shares_created_total",
			Help: "Total shared-deed records created.",
		}),
		sharesViewed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deedflow_shares_viewed_total",
			Help: "Total sent->viewed transitions.",
		}),
		shareDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deedflow_share_decisions_total",
			Help: "Total recipient decisions by outcome.",
		}, []string{"decision"}),
		sharesRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deedflow_shares_revoked_total",
			Help: "Total shares revoked by their owner.",
		}),
		notificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deedflow_notification_failures_total",
			Help: "Total share emails that failed to send.",
		}),
	}

	reg.MustRegister(
		c.sharesCreated,
		c.sharesViewed,
		c.shareDecisions,
		c.sharesRevoked,
		c.notificationFailures,
	)

	return c
}

func (c *Collector) ShareCreated() {
	c.sharesCreated.Inc()
}

func (c *Collector) ShareViewed() {
	c.sharesViewed.Inc()
}

func (c *Collector) ShareDecision(approved bool) {
	decision := "rejected"
	if approved {
		decision = "approved"
	}
	c.shareDecisions.WithLabelValues(decision).Inc()
}

func (c *Collector) ShareRevoked() {
	c.sharesRevoked.Inc()
}

func (c *Collector) NotificationFailed() {
	c.notificationFailures.Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
