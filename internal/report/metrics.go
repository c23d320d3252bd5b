package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"DealScanner/internal/domain"
)

// Metrics is a per-run registry exported through the node_exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	companies   prometheus.Gauge
	articles    *prometheus.GaugeVec
	deals       *prometheus.GaugeVec
	failed      prometheus.Gauge
	degraded    *prometheus.GaugeVec
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// NewMetrics registers the run gauges on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		companies: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dealscanner_companies_processed",
			Help: "Companies processed by the last run",
		}),
		articles: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dealscanner_articles",
			Help: "Candidate articles of the last run by outcome",
		}, []string{"outcome"}),
		deals: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dealscanner_deals",
			Help: "Deal reconciliations of the last run by outcome",
		}, []string{"outcome"}),
		failed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dealscanner_companies_failed",
			Help: "Companies whose deal could not be written",
		}),
		degraded: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dealscanner_adapter_degraded",
			Help: "1 when the adapter lost part of its output in the last run",
		}, []string{"adapter"}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dealscanner_run_duration_seconds",
			Help: "Wall clock of the last run",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dealscanner_last_success_timestamp_seconds",
			Help: "Unix time at which the last run finished",
		}),
	}
}

// Observe records summary.
func (m *Metrics) Observe(summary domain.RunSummary) {
	m.companies.Set(float64(summary.CompaniesProcessed))

	m.articles.WithLabelValues("seen").Set(float64(summary.ArticlesSeen))
	m.articles.WithLabelValues("kept").Set(float64(summary.ArticlesKept))
	m.articles.WithLabelValues("excluded").Set(float64(summary.Excluded))
	m.articles.WithLabelValues("normalization_failed").Set(float64(summary.NormalizationFailed))
	m.articles.WithLabelValues("low_confidence").Set(float64(summary.LowConfidence))
	m.articles.WithLabelValues("out_of_window").Set(float64(summary.OutOfWindow))
	m.articles.WithLabelValues("cleaned_up").Set(float64(summary.CleanupDeleted))

	m.deals.WithLabelValues(string(domain.OutcomeCreated)).Set(float64(summary.DealsCreated))
	m.deals.WithLabelValues(string(domain.OutcomeUpdated)).Set(float64(summary.DealsUpdated))
	m.deals.WithLabelValues(string(domain.OutcomeUnchanged)).Set(float64(summary.DealsUnchanged))

	m.failed.Set(float64(len(summary.CompaniesFailed)))
	m.degraded.Reset()
	for _, name := range summary.AdaptersDegraded {
		m.degraded.WithLabelValues(name).Set(1)
	}
	m.duration.Set(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	if !summary.FinishedAt.IsZero() {
		m.lastSuccess.Set(float64(summary.FinishedAt.Unix()))
	}
}

// Registry exposes the gatherer, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile atomically writes the registry in text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
