package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the risk pipeline's prometheus instruments
type Collector struct {
	registry *prometheus.Registry

	analysesTotal    *prometheus.CounterVec
	decisionsTotal   *prometheus.CounterVec
	anomaliesTotal   prometheus.Counter
	ingestedRows     prometheus.Counter
	analysisDuration prometheus.Histogram
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		analysesTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "risk_analyses_total",
			Help: "Total analyzed transactions by risk category",
		}, []string{"category"}),
		decisionsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "risk_decisions_total",
			Help: "Total fused decisions by type",
		}, []string{"decision"}),
		anomaliesTotal: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "risk_anomalies_total",
			Help: "Total transactions flagged as behaviorally anomalous",
		}),
		ingestedRows: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "risk_ingested_rows_total",
			Help: "Total rows processed through bulk ingestion",
		}),
		analysisDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "risk_analysis_duration_seconds",
			Help:    "Time taken to analyze a transaction",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordAnalysis records one completed analysis
func (c *Collector) RecordAnalysis(category, decision string, anomalous bool, duration time.Duration) {
	c.analysesTotal.WithLabelValues(category).Inc()
	c.decisionsTotal.WithLabelValues(decision).Inc()
	if anomalous {
		c.anomaliesTotal.Inc()
	}
	c.analysisDuration.Observe(duration.Seconds())
}

// RecordIngestedRows counts rows fed through bulk ingestion
func (c *Collector) RecordIngestedRows(n int) {
	c.ingestedRows.Add(float64(n))
}

// Handler exposes the registry for the /metrics endpoint
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
