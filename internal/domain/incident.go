package domain

import "time"

// IncidentStatus represents the status of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentStatusOpen       IncidentStatus = "open"
	IncidentStatusTriage     IncidentStatus = "triage"
	IncidentStatusInProgress IncidentStatus = "in-progress"
	IncidentStatusResolved   IncidentStatus = "resolved"
	IncidentStatusClosed     IncidentStatus = "closed"
)

// IncidentStatuses lists every incident status in display order.
var IncidentStatuses = []IncidentStatus{
	IncidentStatusOpen,
	IncidentStatusTriage,
	IncidentStatusInProgress,
	IncidentStatusResolved,
	IncidentStatusClosed,
}

// IsValid checks if the incident status is known.
func (s IncidentStatus) IsValid() bool {
	for _, status := range IncidentStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Incident is a tracked response record derived from an escalated notification.
type Incident struct {
	ID                   string         `json:"id"`
	Title                string         `json:"title"`
	SourceNotificationID string         `json:"source_notification_id"`
	Severity             Priority       `json:"severity"`
	Status               IncidentStatus `json:"status"`
	Team                 string         `json:"team"`
	CreatedAt            time.Time      `json:"created_at"`
	SLAMinutes           int            `json:"sla_minutes"`
	Category             TargetModule   `json:"category,omitempty"`
}

// Deadline returns the precise SLA deadline of the incident.
func (i Incident) Deadline() time.Time {
	return i.CreatedAt.Add(time.Duration(i.SLAMinutes) * time.Minute)
}
