package inference

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline stages.
const (
	stagePreprocess  = "preprocess"
	stageInference   = "inference"
	stagePostprocess = "postprocess"
)

var (
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yolo_stage_duration_seconds",
		Help:    "Duration of each prediction stage.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"stage", "task"})

	detectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yolo_detections_total",
		Help: "Detections returned after postprocessing.",
	}, []string{"task"})

	inputErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yolo_input_errors_total",
		Help: "Inputs that could not be read or decoded.",
	}, []string{"reason"})
)
