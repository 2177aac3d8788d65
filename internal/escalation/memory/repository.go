// Package memory implements the escalation session store in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/medops/opsdesk/internal/domain"
	"github.com/medops/opsdesk/internal/escalation"
	"github.com/medops/opsdesk/internal/lifecycle"
)

// Config holds store configuration.
type Config struct {
	// MaxNotifications caps the notification list, dropping the oldest.
	// Zero means unlimited. The processed set is never trimmed.
	MaxNotifications int
	// InitialTasks pre-populates task board columns.
	InitialTasks map[domain.TaskColumn][]domain.Task
}

// Repository is the in-memory session store. It is constructed at session
// start and torn down with Close.
type Repository struct {
	config Config

	mu            sync.RWMutex
	closed        bool
	notifications []domain.Notification
	incidents     []domain.Incident
	columns       map[domain.TaskColumn][]domain.Task
	processed     escalation.ProcessedSet

	notificationPolicy lifecycle.NotificationPolicy
	incidentPolicy     lifecycle.IncidentPolicy
}

// NewRepository creates an empty session store.
func NewRepository(config Config) *Repository {
	columns := make(map[domain.TaskColumn][]domain.Task, len(domain.TaskColumns))
	for _, col := range domain.TaskColumns {
		columns[col] = append([]domain.Task(nil), config.InitialTasks[col]...)
	}

	return &Repository{
		config:    config,
		columns:   columns,
		processed: escalation.NewProcessedSet(),
	}
}

// Close tears the store down. Every later call returns escalation.ErrStoreClosed.
func (r *Repository) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.notifications = nil
	r.incidents = nil
	r.columns = nil
	r.processed = nil
}

// AddNotification inserts a notification at the head of the list.
func (r *Repository) AddNotification(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return escalation.ErrStoreClosed
	}

	r.notifications = append([]domain.Notification{n}, r.notifications...)
	if limit := r.config.MaxNotifications; limit > 0 && len(r.notifications) > limit {
		r.notifications = r.notifications[:limit]
	}
	return nil
}

// GetNotification retrieves a notification by ID.
func (r *Repository) GetNotification(_ context.Context, id string) (domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return domain.Notification{}, escalation.ErrStoreClosed
	}

	for _, n := range r.notifications {
		if n.ID == id {
			return n, nil
		}
	}
	return domain.Notification{}, escalation.ErrNotificationNotFound
}

// ListNotifications returns a copy of the notification list.
func (r *Repository) ListNotifications(_ context.Context) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, escalation.ErrStoreClosed
	}
	return append([]domain.Notification{}, r.notifications...), nil
}

// TransitionNotification applies the notification state machine to one record.
// The returned notification reflects the state after the request.
func (r *Repository) TransitionNotification(_ context.Context, id string, to domain.Lifecycle) (domain.Notification, lifecycle.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.Notification{}, "", escalation.ErrStoreClosed
	}

	next, outcome := r.notificationPolicy.Transition(r.notifications, id, to)
	if outcome == lifecycle.OutcomeNotFound {
		return domain.Notification{}, outcome, escalation.ErrNotificationNotFound
	}
	r.notifications = next

	for _, n := range next {
		if n.ID == id {
			return n, outcome, nil
		}
	}
	return domain.Notification{}, outcome, escalation.ErrNotificationNotFound
}

// GetIncident retrieves an incident by ID.
func (r *Repository) GetIncident(_ context.Context, id string) (domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return domain.Incident{}, escalation.ErrStoreClosed
	}

	for _, inc := range r.incidents {
		if inc.ID == id {
			return inc, nil
		}
	}
	return domain.Incident{}, escalation.ErrIncidentNotFound
}

// ListIncidents returns a copy of the incident list.
func (r *Repository) ListIncidents(_ context.Context) ([]domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, escalation.ErrStoreClosed
	}
	return append([]domain.Incident{}, r.incidents...), nil
}

// SetIncidentStatus applies the incident status policy to one record.
func (r *Repository) SetIncidentStatus(_ context.Context, id string, to domain.IncidentStatus) (domain.Incident, lifecycle.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.Incident{}, "", escalation.ErrStoreClosed
	}

	next, outcome := r.incidentPolicy.Transition(r.incidents, id, to)
	if outcome == lifecycle.OutcomeNotFound {
		return domain.Incident{}, outcome, escalation.ErrIncidentNotFound
	}
	r.incidents = next

	for _, inc := range next {
		if inc.ID == id {
			return inc, outcome, nil
		}
	}
	return domain.Incident{}, outcome, escalation.ErrIncidentNotFound
}

// ListTaskColumns returns a copy of the task board in column order.
func (r *Repository) ListTaskColumns(_ context.Context) ([]domain.TaskBoardColumn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, escalation.ErrStoreClosed
	}

	board := make([]domain.TaskBoardColumn, 0, len(domain.TaskColumns))
	for _, col := range domain.TaskColumns {
		board = append(board, domain.TaskBoardColumn{
			Column: col,
			Tasks:  append([]domain.Task{}, r.columns[col]...),
		})
	}
	return board, nil
}

// Snapshot returns copies of the notification list and processed set taken
// under the same lock.
func (r *Repository) Snapshot(_ context.Context) (escalation.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return escalation.Snapshot{}, escalation.ErrStoreClosed
	}

	processed := make(escalation.ProcessedSet, len(r.processed))
	for id := range r.processed {
		processed[id] = struct{}{}
	}

	return escalation.Snapshot{
		Notifications: append([]domain.Notification{}, r.notifications...),
		Processed:     processed,
	}, nil
}

// CommitEscalations inserts incidents and tasks and marks their sources
// processed under one write lock. Incidents are prepended so that the batch
// keeps its input order at the head of the list.
func (r *Repository) CommitEscalations(_ context.Context, batch []escalation.Escalation) ([]escalation.Escalation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, escalation.ErrStoreClosed
	}

	committed := make([]escalation.Escalation, 0, len(batch))
	for _, e := range batch {
		source := e.Incident.SourceNotificationID
		if r.processed.Has(source) {
			continue
		}
		r.processed[source] = struct{}{}
		committed = append(committed, e)
	}
	if len(committed) == 0 {
		return committed, nil
	}

	incidents := make([]domain.Incident, 0, len(committed)+len(r.incidents))
	tasks := make([]domain.Task, 0, len(committed)+len(r.columns[domain.TaskColumnNew]))
	for _, e := range committed {
		incidents = append(incidents, e.Incident)
		tasks = append(tasks, e.Task)
	}
	r.incidents = append(incidents, r.incidents...)
	r.columns[domain.TaskColumnNew] = append(tasks, r.columns[domain.TaskColumnNew]...)

	return committed, nil
}

// Stats returns the current store sizes.
func (r *Repository) Stats(_ context.Context) (escalation.StoreStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return escalation.StoreStats{}, escalation.ErrStoreClosed
	}

	tasks := 0
	for _, col := range r.columns {
		tasks += len(col)
	}

	return escalation.StoreStats{
		Notifications: len(r.notifications),
		Incidents:     len(r.incidents),
		Tasks:         tasks,
		Processed:     len(r.processed),
	}, nil
}
