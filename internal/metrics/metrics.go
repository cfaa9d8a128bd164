package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webm2mp4_messages_processed_total",
		Help: "Queue messages processed per stage, by outcome",
	}, []string{"stage", "outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webm2mp4_stage_duration_seconds",
		Help:    "Duration of one stage unit of work",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	QueueSendErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webm2mp4_queue_send_errors_total",
		Help: "Failed forward-enqueues, by destination queue",
	}, []string{"queue"})
)
