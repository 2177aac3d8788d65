// Package escalation turns qualifying notifications into incidents and tasks
// and manages their lifecycle.
package escalation

import (
	"context"

	"github.com/medops/opsdesk/internal/domain"
	"github.com/medops/opsdesk/internal/lifecycle"
)

// Repository defines the session store owning notifications, incidents,
// task columns and the processed-notification set.
type Repository interface {
	// Notifications, newest first.
	AddNotification(ctx context.Context, n domain.Notification) error
	GetNotification(ctx context.Context, id string) (domain.Notification, error)
	ListNotifications(ctx context.Context) ([]domain.Notification, error)
	TransitionNotification(ctx context.Context, id string, to domain.Lifecycle) (domain.Notification, lifecycle.Outcome, error)

	// Incidents, newest first.
	GetIncident(ctx context.Context, id string) (domain.Incident, error)
	ListIncidents(ctx context.Context) ([]domain.Incident, error)
	SetIncidentStatus(ctx context.Context, id string, to domain.IncidentStatus) (domain.Incident, lifecycle.Outcome, error)

	// Task board, read-only for this package.
	ListTaskColumns(ctx context.Context) ([]domain.TaskBoardColumn, error)

	// Snapshot returns the notification list and processed set from the same state.
	Snapshot(ctx context.Context) (Snapshot, error)

	// CommitEscalations prepends incidents and tasks and marks their source
	// notifications processed in one atomic step. Escalations whose source is
	// already processed are skipped; the committed ones are returned.
	CommitEscalations(ctx context.Context, batch []Escalation) ([]Escalation, error)

	Stats(ctx context.Context) (StoreStats, error)
}

// Snapshot is a mutually consistent view of the escalation inputs.
type Snapshot struct {
	Notifications []domain.Notification
	Processed     ProcessedSet
}

// StoreStats holds store sizes for metrics.
type StoreStats struct {
	Notifications int
	Incidents     int
	Tasks         int
	Processed     int
}
