package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "study_sessions_active",
		Help: "Currently active participant sessions",
	})

	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "study_runs_total",
		Help: "Total dialogue runs processed (both conditions)",
	})

	CheckinsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "study_checkins_total",
		Help: "Total check-in prompts generated",
	})

	ConditionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "study_conditions_total",
		Help: "Per-condition outcomes",
	}, []string{"condition", "status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "study_stage_duration_seconds",
		Help:    "Per-stage latency",
		Buckets: []float64{0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"stage"})

	E2EDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "study_run_duration_seconds",
		Help:    "End-to-end latency for one condition (LLM through TTS)",
		Buckets: []float64{0.2, 0.5, 1.0, 2.0, 5.0, 10.0, 20.0, 60.0},
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "study_errors_total",
		Help: "Error counts by stage",
	}, []string{"stage", "error_type"})

	LanguageRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "study_language_repairs_total",
		Help: "Wrong-language replies sent back for a one-shot rewrite",
	})

	ShapeTruncations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "study_shape_truncations_total",
		Help: "Replies cut down to fit the two-sentence budget",
	})

	ASRNoiseFiltered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "study_asr_noise_filtered_total",
		Help: "Transcripts dropped as background-noise hallucinations",
	})

	ASRWEREstimate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "study_asr_wer_estimate",
		Help: "Latest WER estimate against a reference transcript",
	})
)
