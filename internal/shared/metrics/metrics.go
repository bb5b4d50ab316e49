package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "resume_screener"

// Registry holds every collector exported by this process.
var Registry = prometheus.NewRegistry()

var (
	analysisRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analysis_runs_total",
		Help:      "Analysis runs by outcome.",
	}, []string{"outcome"})

	candidates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "candidates_total",
		Help:      "Candidate pipelines by outcome.",
	}, []string{"outcome"})

	analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analysis_duration_seconds",
		Help:      "Wall-clock duration of analysis runs.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	})

	gateInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gate_in_flight",
		Help:      "Candidate pipelines currently holding a concurrency slot.",
	})

	modelRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_requests_total",
		Help:      "Language model round-trips by kind and outcome.",
	}, []string{"kind", "outcome"})

	modelRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "model_retries_total",
		Help:      "Correction retries sent to the language model.",
	})

	ocrRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ocr_runs_total",
		Help:      "OCR invocations by kind and outcome.",
	}, []string{"kind", "outcome"})

	archiveSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "archive_entries_skipped_total",
		Help:      "Archive entries skipped by the expander, by reason.",
	}, []string{"reason"})

	extractions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extractions_total",
		Help:      "Text extractions by strategy and outcome.",
	}, []string{"strategy", "outcome"})

	screeningJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "screening_jobs_total",
		Help:      "Queued screening jobs handled by the worker, by event.",
	}, []string{"event"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		analysisRuns,
		candidates,
		analysisDuration,
		gateInFlight,
		modelRequests,
		modelRetries,
		ocrRuns,
		archiveSkipped,
		extractions,
		screeningJobs,
	)
}

// IncAnalysisRun counts a finished analysis run ("completed", "empty", "job_parse_failed", "rejected").
func IncAnalysisRun(outcome string) {
	analysisRuns.WithLabelValues(outcome).Inc()
}

// IncCandidate counts a finished candidate pipeline ("ok", "failed", "cancelled").
func IncCandidate(outcome string) {
	candidates.WithLabelValues(outcome).Inc()
}

// ObserveAnalysisDuration records a run duration in seconds.
func ObserveAnalysisDuration(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	analysisDuration.Observe(seconds)
}

// GateAcquired and GateReleased track concurrency slot usage.
func GateAcquired() { gateInFlight.Inc() }

func GateReleased() { gateInFlight.Dec() }

// IncModelRequest counts one model round-trip.
func IncModelRequest(kind, outcome string) {
	modelRequests.WithLabelValues(kind, outcome).Inc()
}

// IncModelRetry counts one correction retry.
func IncModelRetry() {
	modelRetries.Inc()
}

// IncOCR counts one OCR call ("image"/"pdf", "ok"/"timeout"/"error"/"cancelled").
func IncOCR(kind, outcome string) {
	ocrRuns.WithLabelValues(kind, outcome).Inc()
}

// IncArchiveSkipped counts a skipped archive entry.
func IncArchiveSkipped(reason string) {
	archiveSkipped.WithLabelValues(reason).Inc()
}

// IncExtraction counts one extraction attempt.
func IncExtraction(strategy, outcome string) {
	extractions.WithLabelValues(strategy, outcome).Inc()
}

// IncScreeningJob counts screening lifecycle events ("submitted", "received", "completed", "failed", "retry", "deleted_unrecoverable").
func IncScreeningJob(event string) {
	screeningJobs.WithLabelValues(event).Inc()
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
