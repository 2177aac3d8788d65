package paging

import (
	"context"
	"time"

	"github.com/medops/opsdesk/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagingQueueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "paging",
			Name:      "queue_size",
			Help:      "Number of pages in queue by status",
		},
		[]string{"status"},
	)

	pagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "paging",
			Name:      "sent_total",
			Help:      "Total pages processed",
		},
		[]string{"channel_type", "status"},
	)

	pageSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "paging",
			Name:      "send_duration_seconds",
			Help:      "Time to send a page",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel_type"},
	)
)

func recordPageSent(channelType, status string) {
	pagesSent.WithLabelValues(channelType, status).Inc()
}

func recordPageDuration(channelType string, duration time.Duration) {
	pageSendDuration.WithLabelValues(channelType).Observe(duration.Seconds())
}

// RecordQueueStats updates queue size metrics.
func RecordQueueStats(stats QueueStats) {
	pagingQueueSize.WithLabelValues(string(QueueStatusPending)).Set(float64(stats.Pending))
	pagingQueueSize.WithLabelValues(string(QueueStatusProcessing)).Set(float64(stats.Processing))
	pagingQueueSize.WithLabelValues(string(QueueStatusSent)).Set(float64(stats.Sent))
	pagingQueueSize.WithLabelValues(string(QueueStatusFailed)).Set(float64(stats.Failed))
}

// QueueCollector returns a metrics.CollectFunc sampling the queue.
func QueueCollector(queue Queue) metrics.CollectFunc {
	return func(ctx context.Context) error {
		stats, err := queue.Stats(ctx)
		if err != nil {
			return err
		}
		RecordQueueStats(stats)
		return nil
	}
}
