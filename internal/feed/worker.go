package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/medops/opsdesk/internal/escalation"
	"github.com/medops/opsdesk/internal/pkg/ctxlog"
	"github.com/medops/opsdesk/internal/pkg/metrics"
)

// Ingester accepts new notifications.
type Ingester interface {
	Ingest(ctx context.Context, input escalation.IngestInput) (*escalation.IngestResult, error)
}

// WorkerConfig contains feed worker configuration.
type WorkerConfig struct {
	Interval time.Duration
}

// Worker steps the simulator on every tick and ingests the alerts it raises.
type Worker struct {
	config    WorkerConfig
	simulator *Simulator
	ingester  Ingester

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewWorker creates a new feed worker.
func NewWorker(config WorkerConfig, simulator *Simulator, ingester Ingester) *Worker {
	return &Worker{
		config:    config,
		simulator: simulator,
		ingester:  ingester,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("starting feed worker", "interval", w.config.Interval)

	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the worker and waits for the current tick to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		slog.Info("feed worker stopped")
	})
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	ctx = ctxlog.WithComponent(ctx, "feed")

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	alerts := w.simulator.Step()
	if len(alerts) == 0 {
		metrics.FeedTicks.WithLabelValues("quiet").Inc()
		return
	}

	logger := ctxlog.FromContext(ctx)
	result := "alert"
	for _, alert := range alerts {
		res, err := w.ingester.Ingest(ctx, alert)
		if err != nil {
			logger.Error("failed to ingest feed alert", "title", alert.Title, "error", err)
			result = "error"
			continue
		}
		logger.Info("feed alert ingested",
			"notification_id", res.Notification.ID,
			"title", alert.Title,
			"incidents", len(res.Escalations),
		)
	}
	metrics.FeedTicks.WithLabelValues(result).Inc()
}
