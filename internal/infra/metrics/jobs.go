package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(transcriptionJobsTotal, transcriptionDurationSec, queueDepth, recoveredJobsTotal)
}

var (
	transcriptionJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcription_jobs_total",
			Help: "Total transcription jobs finished, labeled by outcome.",
		},
		[]string{"status"}, // 'transcribed', 'error'
	)

	transcriptionDurationSec = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transcription_job_duration_seconds",
			Help:    "Wall-clock duration of one transcription job.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "transcription_queue_depth",
			Help: "Number of jobs waiting in the transcription queue.",
		},
	)

	recoveredJobsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "transcription_recovered_jobs_total",
			Help: "Jobs re-enqueued by the startup recovery scan.",
		},
	)
)

func IncTranscriptionJob(status string) {
	transcriptionJobsTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveTranscriptionDuration(seconds float64) {
	transcriptionDurationSec.Observe(seconds)
}

func SetQueueDepth(n int) { queueDepth.Set(float64(n)) }

func IncRecoveredJobs() { recoveredJobsTotal.Inc() }
