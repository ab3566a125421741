// Package metrics registers the Prometheus collectors for ingestion and validation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lulutv_probes_total",
		Help: "Stream probes by outcome",
	}, []string{"outcome"}) // outcome=working|hls|down|error

	probeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lulutv_probe_duration_seconds",
		Help:    "Wall time of a single stream probe",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 12, 20},
	})

	jobRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lulutv_validation_job_running",
		Help: "Whether a bulk validation job is running (1) or idle (0)",
	})

	jobProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lulutv_validation_job_progress_percent",
		Help: "Progress of the current or last bulk validation job",
	})

	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lulutv_validation_jobs_total",
		Help: "Bulk validation jobs by result",
	}, []string{"result"}) // result=completed|failed|rejected

	manifestFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lulutv_manifest_fetches_total",
		Help: "Remote manifest fetches by outcome",
	}, []string{"outcome"}) // outcome=success|failure|cache_hit

	channelsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lulutv_channels_loaded",
		Help: "Channel records in the current snapshot",
	})
)

func ObserveProbe(outcome string, d time.Duration) {
	probesTotal.WithLabelValues(outcome).Inc()
	probeDuration.Observe(d.Seconds())
}

func SetJobRunning(running bool) {
	if running {
		jobRunning.Set(1)
		return
	}
	jobRunning.Set(0)
}

func SetJobProgress(pct float64)      { jobProgress.Set(pct) }
func IncJob(result string)            { jobsTotal.WithLabelValues(result).Inc() }
func IncManifestFetch(outcome string) { manifestFetches.WithLabelValues(outcome).Inc() }
func SetChannelsLoaded(n int)         { channelsLoaded.Set(float64(n)) }
