package paging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/medops/opsdesk/internal/domain"
)

// NotifierConfig configures the incident notifier.
type NotifierConfig struct {
	BaseURL     string
	MaxAttempts int
	// Channels lists paging destinations per responder team.
	Channels map[string][]domain.PagingChannel
}

// Notifier enqueues pages for every channel of the team owning a new incident.
type Notifier struct {
	config     NotifierConfig
	queue      Queue
	dispatcher *Dispatcher
	now        func() time.Time
}

// NewNotifier creates a new Notifier.
func NewNotifier(config NotifierConfig, queue Queue, dispatcher *Dispatcher) *Notifier {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultWorkerConfig().MaxAttempts
	}
	return &Notifier{
		config:     config,
		queue:      queue,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// OnIncidentCreated enqueues one page per channel configured for the incident's team.
func (n *Notifier) OnIncidentCreated(ctx context.Context, incident domain.Incident, task domain.Task) error {
	channels := n.config.Channels[incident.Team]
	if len(channels) == 0 {
		slog.Debug("no paging channels for team", "team", incident.Team, "incident_id", incident.ID)
		return nil
	}

	now := n.now()
	payload := NewIncidentPayload(incident, task, n.config.BaseURL, now)

	items := make([]QueueItem, 0, len(channels))
	for _, ch := range channels {
		if !n.dispatcher.Supports(ch.Type) {
			slog.Warn("no sender for paging channel", "team", ch.Team, "type", ch.Type)
			continue
		}
		items = append(items, QueueItem{
			ID:            uuid.NewString(),
			IncidentID:    incident.ID,
			Channel:       ch,
			Payload:       payload,
			MaxAttempts:   n.config.MaxAttempts,
			NextAttemptAt: now,
			CreatedAt:     now,
		})
	}
	if len(items) == 0 {
		return nil
	}

	if err := n.queue.Enqueue(ctx, items...); err != nil {
		return fmt.Errorf("enqueue pages: %w", err)
	}

	slog.Info("incident pages queued", "incident_id", incident.ID, "team", incident.Team, "channels", len(items))
	return nil
}
