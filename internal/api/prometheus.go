package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atmoslab/fluxpro/internal/flux"
)

var (
	runsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fluxpro",
			Name:      "runs_total",
			Help:      "Total number of processed instrument files",
		},
	)

	readingsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fluxpro",
			Name:      "readings_processed_total",
			Help:      "Total number of instrument readings processed",
		},
	)

	lastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fluxpro",
			Name:      "last_run_timestamp",
			Help:      "Timestamp of the last processed run (Unix timestamp)",
		},
	)

	runDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fluxpro",
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run in seconds",
		},
	)

	meanFlux = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fluxpro",
			Name:      "mean_flux",
			Help:      "Mean corrected flux of the last run per gas and sample",
		},
		[]string{"gas", "sample"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		runsTotal,
		readingsProcessed,
		lastRunTimestamp,
		runDuration,
		meanFlux,
	)
}

// handlePrometheusMetrics exposes Prometheus metrics.
func (s *Server) handlePrometheusMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// MetricsHandler returns the Prometheus scrape handler. The watch command
// serves it on its own listener so long-running watchers can be scraped
// without the plot server.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// UpdateMetricsForRun updates Prometheus metrics after a run.
// Exported so it can be called from the run command and the watcher.
func UpdateMetricsForRun(result *flux.RunResult) {
	runsTotal.Inc()
	readingsProcessed.Add(float64(result.Readings))
	lastRunTimestamp.Set(float64(result.StartedAt.Unix()))
	runDuration.Set(result.Duration.Seconds())

	// Average the per-cycle means per (gas, sample) for the gauge.
	type key struct {
		gas    string
		sample int
	}
	sums := make(map[key]float64)
	counts := make(map[key]int)
	for k, stats := range result.Stats {
		if math.IsNaN(stats.Mean) {
			continue
		}
		gk := key{k.Gas, k.Sample}
		sums[gk] += stats.Mean
		counts[gk]++
	}
	for gk, sum := range sums {
		meanFlux.WithLabelValues(gk.gas, strconv.Itoa(gk.sample)).Set(sum / float64(counts[gk]))
	}
}
