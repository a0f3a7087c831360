package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(aiDispatchAttempts, aiDispatchLatencyMs, aiPromptTokens)
}

var (
	aiDispatchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_dispatch_attempts_total",
			Help: "Generative-AI call attempts labeled by per-attempt outcome.",
		},
		[]string{"model", "outcome"}, // 'ok', 'rate_limited', 'fatal'
	)

	aiDispatchLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_dispatch_latency_ms",
			Help:    "Generative-AI dispatch latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000, 120000},
		},
		[]string{"model", "success"},
	)

	aiPromptTokens = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_prompt_tokens",
			Help:    "Estimated prompt token counts per analysis dispatch.",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144},
		},
		[]string{"model"},
	)
)

func IncDispatchAttempt(model, outcome string) {
	aiDispatchAttempts.WithLabelValues(norm(model), norm(outcome)).Inc()
}

func ObserveDispatchLatency(model string, latencyMs int, success bool) {
	aiDispatchLatencyMs.WithLabelValues(norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func ObservePromptTokens(model string, tokens int) {
	aiPromptTokens.WithLabelValues(norm(model)).Observe(float64(tokens))
}
