package paging

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/medops/opsdesk/internal/domain"
)

// QueueStatus represents the status of a queue item.
type QueueStatus string

// Queue statuses.
const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusSent       QueueStatus = "sent"
	QueueStatusFailed     QueueStatus = "failed"
)

// QueueItem is one page waiting to be delivered to one channel.
type QueueItem struct {
	ID            string
	IncidentID    string
	Channel       domain.PagingChannel
	Payload       Payload
	Status        QueueStatus
	Attempts      int
	MaxAttempts   int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// QueueStats holds queue sizes by status. Sent and Failed are running totals.
type QueueStats struct {
	Pending    int
	Processing int
	Sent       int
	Failed     int
}

// Queue stores pages until a worker delivers them.
type Queue interface {
	Enqueue(ctx context.Context, items ...QueueItem) error
	// FetchDue claims up to limit pending items whose next attempt is due.
	FetchDue(ctx context.Context, now time.Time, limit int) ([]QueueItem, error)
	MarkAsSent(ctx context.Context, id string) error
	MarkAsFailed(ctx context.Context, id string, err error) error
	MarkForRetry(ctx context.Context, id string, err error, nextAttempt time.Time) error
	Stats(ctx context.Context) (QueueStats, error)
}

// MemoryQueue is a process-local Queue. Finished items are dropped and only
// counted.
type MemoryQueue struct {
	mu     sync.Mutex
	items  map[string]*QueueItem
	sent   int
	failed int
	now    func() time.Time
}

// NewMemoryQueue creates an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		items: make(map[string]*QueueItem),
		now:   time.Now,
	}
}

// Enqueue adds items in pending state.
func (q *MemoryQueue) Enqueue(_ context.Context, items ...QueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	for _, item := range items {
		item.Status = QueueStatusPending
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.UpdatedAt = now
		if item.NextAttemptAt.IsZero() {
			item.NextAttemptAt = now
		}
		stored := item
		q.items[item.ID] = &stored
	}
	return nil
}

// FetchDue claims due pending items, oldest first, and marks them processing.
func (q *MemoryQueue) FetchDue(_ context.Context, now time.Time, limit int) ([]QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	due := make([]*QueueItem, 0)
	for _, item := range q.items {
		if item.Status == QueueStatusPending && !item.NextAttemptAt.After(now) {
			due = append(due, item)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].CreatedAt.Equal(due[j].CreatedAt) {
			return due[i].ID < due[j].ID
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]QueueItem, 0, len(due))
	for _, item := range due {
		item.Status = QueueStatusProcessing
		item.UpdatedAt = now
		claimed = append(claimed, *item)
	}
	return claimed, nil
}

// MarkAsSent finishes an item successfully.
func (q *MemoryQueue) MarkAsSent(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.items[id]; !ok {
		return ErrItemNotFound
	}
	delete(q.items, id)
	q.sent++
	return nil
}

// MarkAsFailed finishes an item without delivery.
func (q *MemoryQueue) MarkAsFailed(_ context.Context, id string, _ error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.items[id]; !ok {
		return ErrItemNotFound
	}
	delete(q.items, id)
	q.failed++
	return nil
}

// MarkForRetry returns an item to pending with its attempt counter increased.
func (q *MemoryQueue) MarkForRetry(_ context.Context, id string, err error, nextAttempt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return ErrItemNotFound
	}
	item.Status = QueueStatusPending
	item.Attempts++
	item.NextAttemptAt = nextAttempt
	item.UpdatedAt = q.now()
	if err != nil {
		item.LastError = err.Error()
	}
	return nil
}

// Stats returns current queue sizes.
func (q *MemoryQueue) Stats(_ context.Context) (QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := QueueStats{Sent: q.sent, Failed: q.failed}
	for _, item := range q.items {
		switch item.Status {
		case QueueStatusPending:
			stats.Pending++
		case QueueStatusProcessing:
			stats.Processing++
		}
	}
	return stats, nil
}
