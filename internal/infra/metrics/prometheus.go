package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framepick_jobs_processed_total",
		Help: "Total number of keyframe jobs processed, by status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "framepick_stage_duration_seconds",
		Help:    "Duration of keyframe pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	ClipsCutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framepick_clips_cut_total",
		Help: "Total number of temporary clips cut across all jobs",
	})

	CandidatesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framepick_candidates_extracted_total",
		Help: "Total number of candidate frames proposed by the extraction collaborator",
	})

	KeyframesSelectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framepick_keyframes_selected_total",
		Help: "Total number of keyframes selected across all jobs",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "framepick_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framepick_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})

	CompressionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framepick_compressions_total",
		Help: "Total number of per-file compression invocations, by outcome",
	}, []string{"outcome"})
)
