package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/medops/opsdesk/internal/domain"
	"github.com/medops/opsdesk/internal/lifecycle"
	"github.com/medops/opsdesk/internal/routing"
)

// IncidentNotifier is told about every incident after it has been committed.
type IncidentNotifier interface {
	OnIncidentCreated(ctx context.Context, incident domain.Incident, task domain.Task) error
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used for incident creation and countdowns.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithNotifier sets the notifier informed about new incidents.
func WithNotifier(notifier IncidentNotifier) Option {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// Service implements the escalation pipeline.
type Service struct {
	repo     Repository
	seeds    SeedGenerator
	notifier IncidentNotifier
	now      func() time.Time

	// serializes eligibility runs so seeds are not drawn for work another run commits
	runMu sync.Mutex
}

// NewService creates a new escalation service.
func NewService(repo Repository, seeds SeedGenerator, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		seeds: seeds,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestInput holds data for a new notification.
type IngestInput struct {
	Priority    domain.Priority
	Title       string
	Description string
	Location    string
	Time        string
	ActionLabel string
	Category    domain.TargetModule
}

// IngestResult is the stored notification plus the incident its arrival
// produced, if any. Incidents committed in the same run for other
// notifications are not included.
type IngestResult struct {
	Notification domain.Notification `json:"notification"`
	Escalations  []Escalation        `json:"escalations"`
}

// Ingest stores a new notification and runs escalation for it.
func (s *Service) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}
	if !input.Priority.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPriority, input.Priority)
	}
	if input.Category != "" && !input.Category.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCategory, input.Category)
	}

	age := input.Time
	if age == "" {
		age = "Baru saja"
	}

	n := domain.Notification{
		ID:          NotificationIDPrefix + s.seeds.NextSeed(),
		Priority:    input.Priority,
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Time:        age,
		ActionLabel: input.ActionLabel,
		Category:    input.Category,
		Lifecycle:   domain.LifecycleNew,
	}

	if err := s.repo.AddNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("add notification: %w", err)
	}

	slog.Debug("notification ingested", "notification_id", n.ID, "priority", n.Priority)

	created, err := s.RunEscalation(ctx)
	if err != nil {
		return nil, fmt.Errorf("run escalation: %w", err)
	}

	// a concurrent run may commit other notifications' incidents
	own := make([]Escalation, 0, 1)
	for _, e := range created {
		if e.Incident.SourceNotificationID == n.ID {
			own = append(own, e)
		}
	}

	return &IngestResult{Notification: n, Escalations: own}, nil
}

// RunEscalation evaluates the whole notification list and escalates every
// eligible notification exactly once. Re-running without new input creates nothing.
func (s *Service) RunEscalation(ctx context.Context) ([]Escalation, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	escalationRuns.Inc()

	snapshot, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	eligible := Eligible(snapshot.Notifications, snapshot.Processed)
	if len(eligible) == 0 {
		return nil, nil
	}

	createdAt := s.now().UTC().Truncate(time.Second)
	batch := make([]Escalation, 0, len(eligible))
	for _, n := range eligible {
		batch = append(batch, NewEscalation(n, s.seeds.NextSeed(), createdAt))
	}

	committed, err := s.repo.CommitEscalations(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("commit escalations: %w", err)
	}

	for _, e := range committed {
		recordIncidentCreated(string(e.Incident.Severity))
		slog.Info("incident created",
			"incident_id", e.Incident.ID,
			"task_id", e.Task.ID,
			"source_notification_id", e.Incident.SourceNotificationID,
			"severity", e.Incident.Severity,
			"team", e.Incident.Team,
			"sla_minutes", e.Incident.SLAMinutes,
		)
		if s.notifier == nil {
			continue
		}
		if err := s.notifier.OnIncidentCreated(ctx, e.Incident, e.Task); err != nil {
			// incident is committed, paging is best effort
			slog.Error("failed to notify about incident", "incident_id", e.Incident.ID, "error", err)
		}
	}

	return committed, nil
}

// ListNotifications returns notifications newest first. With criticalOnly set
// only unresolved Tinggi/Kritis notifications are returned.
func (s *Service) ListNotifications(ctx context.Context, criticalOnly bool) ([]domain.Notification, error) {
	notifications, err := s.repo.ListNotifications(ctx)
	if err != nil {
		return nil, err
	}
	if !criticalOnly {
		return notifications, nil
	}

	filtered := make([]domain.Notification, 0, len(notifications))
	for _, n := range notifications {
		if n.IsCritical() {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}

// GetNotification retrieves a notification by ID.
func (s *Service) GetNotification(ctx context.Context, id string) (domain.Notification, error) {
	return s.repo.GetNotification(ctx, id)
}

// UpdateNotificationLifecycle moves a notification through the gated state
// machine. An illegal request leaves the notification untouched and returns
// ErrIllegalTransition.
func (s *Service) UpdateNotificationLifecycle(ctx context.Context, id string, to domain.Lifecycle) (domain.Notification, error) {
	if !to.IsValid() {
		return domain.Notification{}, fmt.Errorf("%w: %s", ErrInvalidLifecycle, to)
	}

	n, outcome, err := s.repo.TransitionNotification(ctx, id, to)
	if err != nil {
		return domain.Notification{}, err
	}
	recordTransition("notification", outcome)

	if outcome == lifecycle.OutcomeRejected {
		slog.Debug("notification transition rejected", "notification_id", id, "from", n.Lifecycle, "to", to)
		return n, ErrIllegalTransition
	}
	return n, nil
}

// QuickActionResult describes a one-click remediation.
type QuickActionResult struct {
	Notification domain.Notification `json:"notification"`
	Target       domain.TargetModule `json:"target,omitempty"`
	Routed       bool                `json:"routed"`
	Message      string              `json:"message"`
}

const defaultActionLabel = "Tindak cepat"

// QuickAction acknowledges a notification and reports the module it routes to.
// A notification that can no longer be acknowledged keeps its state.
func (s *Service) QuickAction(ctx context.Context, id string) (*QuickActionResult, error) {
	n, err := s.UpdateNotificationLifecycle(ctx, id, domain.LifecycleAcknowledged)
	if err != nil && !errors.Is(err, ErrIllegalTransition) {
		return nil, err
	}

	label := n.ActionLabel
	if label == "" {
		label = defaultActionLabel
	}

	result := &QuickActionResult{Notification: n}
	if target, ok := routing.ForNotification(n); ok {
		result.Target = target
		result.Routed = true
		result.Message = fmt.Sprintf("Aksi dijalankan: %s → %s", label, target)
	} else {
		result.Message = fmt.Sprintf("Aksi dijalankan: %s", label)
	}
	return result, nil
}

// RouteNotification returns the module a notification routes to.
func (s *Service) RouteNotification(ctx context.Context, id string) (domain.TargetModule, bool, error) {
	n, err := s.repo.GetNotification(ctx, id)
	if err != nil {
		return "", false, err
	}
	target, ok := routing.ForNotification(n)
	return target, ok, nil
}

// ListIncidents returns incidents newest first, optionally filtered by severity.
func (s *Service) ListIncidents(ctx context.Context, severity *domain.Priority) ([]domain.Incident, error) {
	incidents, err := s.repo.ListIncidents(ctx)
	if err != nil {
		return nil, err
	}
	if severity == nil {
		return incidents, nil
	}

	filtered := make([]domain.Incident, 0, len(incidents))
	for _, inc := range incidents {
		if inc.Severity == *severity {
			filtered = append(filtered, inc)
		}
	}
	return filtered, nil
}

// GetIncident retrieves an incident by ID.
func (s *Service) GetIncident(ctx context.Context, id string) (domain.Incident, error) {
	return s.repo.GetIncident(ctx, id)
}

// UpdateIncidentStatus assigns a status to an incident. Incident statuses
// have no ordering constraint; only unknown statuses are refused.
func (s *Service) UpdateIncidentStatus(ctx context.Context, id string, to domain.IncidentStatus) (domain.Incident, error) {
	if !to.IsValid() {
		return domain.Incident{}, fmt.Errorf("%w: %s", ErrInvalidIncidentStatus, to)
	}

	inc, outcome, err := s.repo.SetIncidentStatus(ctx, id, to)
	if err != nil {
		return domain.Incident{}, err
	}
	recordTransition("incident", outcome)

	if outcome.Mutated() {
		slog.Info("incident status changed", "incident_id", id, "status", to)
	}
	return inc, nil
}

// IncidentCountdown computes the SLA countdown of an incident at the current time.
func (s *Service) IncidentCountdown(ctx context.Context, id string) (Countdown, error) {
	inc, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return Countdown{}, err
	}
	return CountdownAt(inc, s.now()), nil
}

// IncidentSummary counts incidents per status. Every status is present.
func (s *Service) IncidentSummary(ctx context.Context) (map[domain.IncidentStatus]int, error) {
	incidents, err := s.repo.ListIncidents(ctx)
	if err != nil {
		return nil, err
	}

	summary := make(map[domain.IncidentStatus]int, len(domain.IncidentStatuses))
	for _, status := range domain.IncidentStatuses {
		summary[status] = 0
	}
	for _, inc := range incidents {
		summary[inc.Status]++
	}
	return summary, nil
}

// ListTaskColumns returns the task board in column order.
func (s *Service) ListTaskColumns(ctx context.Context) ([]domain.TaskBoardColumn, error) {
	return s.repo.ListTaskColumns(ctx)
}
