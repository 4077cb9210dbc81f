package metrics

import "github.com/prometheus/client_golang/prometheus"

// Quiz generation Prometheus metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "generation_requests_total",
			Help:      "Total number of completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quizgen",
			Name:      "generation_request_duration_seconds",
			Help:      "Completion request duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "model"},
	)

	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "generation_tokens_total",
			Help:      "Total completion tokens consumed",
		},
		[]string{"provider", "model", "type"}, // type: "prompt" / "completion"
	)

	QuizPipelineTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "quiz_pipeline_total",
			Help:      "Quiz generation pipeline outcomes",
		},
		[]string{"source", "status"}, // source: "document" / "topic"
	)

	RetrievalFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizgen",
			Name:      "retrieval_fallback_total",
			Help:      "Retrievals that fell through to keyword search",
		},
		[]string{"outcome"}, // "matched" / "insufficient"
	)
)

var genMetricsRegistered bool

// RegisterGenerationMetrics registers Prometheus generation metrics. Must be called once from main.
func RegisterGenerationMetrics() {
	if genMetricsRegistered {
		return
	}
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(GenerationTokensTotal)
	prometheus.MustRegister(QuizPipelineTotal)
	prometheus.MustRegister(RetrievalFallbackTotal)
	genMetricsRegistered = true
}
