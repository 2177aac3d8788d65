package paging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WorkerConfig contains worker configuration.
type WorkerConfig struct {
	BatchSize         int
	PollInterval      time.Duration
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	NumWorkers        int
}

// DefaultWorkerConfig returns default worker configuration.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize:         50,
		PollInterval:      2 * time.Second,
		MaxAttempts:       5,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        2 * time.Minute,
		BackoffMultiplier: 2.0,
		NumWorkers:        2,
	}
}

// Worker drains the paging queue.
type Worker struct {
	config     WorkerConfig
	queue      Queue
	dispatcher *Dispatcher
	renderer   *Renderer
	now        func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewWorker creates a new paging worker.
func NewWorker(config WorkerConfig, queue Queue, dispatcher *Dispatcher, renderer *Renderer) *Worker {
	return &Worker{
		config:     config,
		queue:      queue,
		dispatcher: dispatcher,
		renderer:   renderer,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("starting paging worker",
		"workers", w.config.NumWorkers,
		"batch_size", w.config.BatchSize,
		"poll_interval", w.config.PollInterval,
	)

	for i := 0; i < w.config.NumWorkers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
}

// Stop gracefully stops all workers. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		slog.Info("paging worker stopped")
	})
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.processBatch(ctx, workerID)
		}
	}
}

func (w *Worker) processBatch(ctx context.Context, workerID int) {
	items, err := w.queue.FetchDue(ctx, w.now(), w.config.BatchSize)
	if err != nil {
		slog.Error("failed to fetch due pages", "worker", workerID, "error", err)
		return
	}

	if len(items) == 0 {
		return
	}

	slog.Debug("processing pages", "worker", workerID, "count", len(items))

	for _, item := range items {
		w.processItem(ctx, item)
	}
}

func (w *Worker) processItem(ctx context.Context, item QueueItem) {
	start := time.Now()
	channelType := string(item.Channel.Type)

	subject, body, err := w.renderer.Render(item.Channel.Type, item.Payload)
	if err != nil {
		slog.Error("failed to render page", "item_id", item.ID, "error", err)
		w.markFailed(ctx, item, err)
		recordPageSent(channelType, "failed")
		return
	}

	err = w.dispatcher.SendToChannel(ctx, item.Channel.Type, Message{
		To:      item.Channel.Target,
		Subject: subject,
		Body:    body,
	})
	duration := time.Since(start)

	if err != nil {
		w.handleSendError(ctx, item, err)
		return
	}

	if err := w.queue.MarkAsSent(ctx, item.ID); err != nil {
		slog.Error("failed to mark page as sent", "item_id", item.ID, "error", err)
	}

	recordPageSent(channelType, "success")
	recordPageDuration(channelType, duration)

	slog.Debug("page sent",
		"item_id", item.ID,
		"incident_id", item.IncidentID,
		"channel_type", channelType,
		"duration", duration,
	)
}

func (w *Worker) handleSendError(ctx context.Context, item QueueItem, err error) {
	channelType := string(item.Channel.Type)

	slog.Warn("page send failed",
		"item_id", item.ID,
		"incident_id", item.IncidentID,
		"attempt", item.Attempts+1,
		"max_attempts", item.MaxAttempts,
		"error", err,
	)

	if !isRetryable(err) {
		w.markFailed(ctx, item, err)
		recordPageSent(channelType, "failed")
		return
	}

	if item.Attempts+1 >= item.MaxAttempts {
		w.markFailed(ctx, item, maxAttemptsError(err))
		recordPageSent(channelType, "failed")
		return
	}

	nextAttempt := w.calculateNextAttempt(item.Attempts + 1)
	if markErr := w.queue.MarkForRetry(ctx, item.ID, err, nextAttempt); markErr != nil {
		slog.Error("failed to mark page for retry", "item_id", item.ID, "error", markErr)
	}
	recordPageSent(channelType, "retry")

	slog.Info("page scheduled for retry", "item_id", item.ID, "next_attempt", nextAttempt)
}

func (w *Worker) markFailed(ctx context.Context, item QueueItem, err error) {
	if markErr := w.queue.MarkAsFailed(ctx, item.ID, err); markErr != nil {
		slog.Error("failed to mark page as failed", "item_id", item.ID, "error", markErr)
	}
}

func (w *Worker) calculateNextAttempt(attempt int) time.Time {
	backoff := float64(w.config.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= w.config.BackoffMultiplier
	}

	if backoff > float64(w.config.MaxBackoff) {
		backoff = float64(w.config.MaxBackoff)
	}

	return w.now().Add(time.Duration(backoff))
}
