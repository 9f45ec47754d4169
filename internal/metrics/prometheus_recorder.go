package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry      *prom.Registry
	buildDuration prom.Histogram
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	buildOutcome  *prom.CounterVec
	commandsTotal prom.Counter
	retriesTotal  *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the docrunner metrics on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}

	pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "docrunner",
		Name:      "build_duration_seconds",
		Help:      "Total build duration",
		Buckets:   prom.DefBuckets,
	})
	pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "docrunner",
		Name:      "stage_duration_seconds",
		Help:      "Duration of individual build stages",
		Buckets:   prom.DefBuckets,
	}, []string{"stage"})
	pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "docrunner",
		Name:      "stage_results_total",
		Help:      "Stage result counts by outcome",
	}, []string{"stage", "result"})
	pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "docrunner",
		Name:      "build_outcomes_total",
		Help:      "Build outcomes by final status",
	}, []string{"outcome"})
	pr.commandsTotal = prom.NewCounter(prom.CounterOpts{
		Namespace: "docrunner",
		Name:      "commands_executed_total",
		Help:      "Build commands executed across all builds",
	})
	pr.retriesTotal = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "docrunner",
		Name:      "stage_retries_total",
		Help:      "Retry attempts per stage",
	}, []string{"stage"})

	reg.MustRegister(
		pr.buildDuration,
		pr.stageDuration,
		pr.stageResults,
		pr.buildOutcome,
		pr.commandsTotal,
		pr.retriesTotal,
	)
	return pr
}

// Handler returns the HTTP handler exposing this recorder's registry.
func (pr *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(pr.registry, promhttp.HandlerOpts{})
}

func (pr *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	pr.buildDuration.Observe(d.Seconds())
}

func (pr *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	pr.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (pr *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	pr.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (pr *PrometheusRecorder) IncBuildOutcome(outcome string) {
	pr.buildOutcome.WithLabelValues(outcome).Inc()
}

func (pr *PrometheusRecorder) IncCommandsExecuted(n int) {
	pr.commandsTotal.Add(float64(n))
}

func (pr *PrometheusRecorder) IncRetry(stage string) {
	pr.retriesTotal.WithLabelValues(stage).Inc()
}
