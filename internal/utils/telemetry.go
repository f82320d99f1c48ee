package utils

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Telemetry holds the process Prometheus collectors.
type Telemetry struct {
	Registry    *prometheus.Registry
	Runs        *prometheus.CounterVec
	RunDuration prometheus.Histogram
	KPIRows     prometheus.Counter
	Chunks      prometheus.Counter
	HTTPLatency *prometheus.HistogramVec
}

func NewTelemetry() *Telemetry {
	reg := prometheus.NewRegistry()
	t := &Telemetry{
		Registry: reg,
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_pipeline_runs_total",
			Help: "Pipeline runs by outcome.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assistant_pipeline_run_seconds",
			Help:    "Wall time of a pipeline run.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		KPIRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assistant_kpi_rows_total",
			Help: "Aggregate KPI rows produced.",
		}),
		Chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assistant_chunks_ingested_total",
			Help: "Text chunks written to the vector store.",
		}),
		HTTPLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assistant_http_request_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		t.Runs, t.RunDuration, t.KPIRows, t.Chunks, t.HTTPLatency,
	)
	return t
}

func (t *Telemetry) Handler() http.Handler {
	return promhttp.HandlerFor(t.Registry, promhttp.HandlerOpts{Registry: t.Registry})
}
