package paging

import (
	"time"

	"github.com/medops/opsdesk/internal/domain"
	"github.com/medops/opsdesk/internal/routing"
)

// Payload contains everything needed to render a page about a new incident.
type Payload struct {
	Incident    IncidentData `json:"incident"`
	Task        TaskData     `json:"task"`
	Target      string       `json:"target,omitempty"`
	URL         string       `json:"url,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// IncidentData is the incident part of a page.
type IncidentData struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Severity             string    `json:"severity"`
	Status               string    `json:"status"`
	Team                 string    `json:"team"`
	SourceNotificationID string    `json:"source_notification_id"`
	SLAMinutes           int       `json:"sla_minutes"`
	CreatedAt            time.Time `json:"created_at"`
	Deadline             time.Time `json:"deadline"`
}

// TaskData is the follow-up task part of a page.
type TaskData struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Assignee string `json:"assignee"`
	DueDate  string `json:"due_date"`
}

// NewIncidentPayload builds the payload for an incident and its task.
// The incident URL is omitted when baseURL is empty.
func NewIncidentPayload(incident domain.Incident, task domain.Task, baseURL string, now time.Time) Payload {
	target, _ := routing.ForIncident(incident)

	p := Payload{
		Incident: IncidentData{
			ID:                   incident.ID,
			Title:                incident.Title,
			Severity:             string(incident.Severity),
			Status:               string(incident.Status),
			Team:                 incident.Team,
			SourceNotificationID: incident.SourceNotificationID,
			SLAMinutes:           incident.SLAMinutes,
			CreatedAt:            incident.CreatedAt,
			Deadline:             incident.Deadline(),
		},
		Task: TaskData{
			ID:       task.ID,
			Title:    task.Title,
			Assignee: task.Assignee,
			DueDate:  task.DueDate,
		},
		Target:      string(target),
		GeneratedAt: now,
	}
	if baseURL != "" {
		p.URL = baseURL + "/incidents/" + incident.ID
	}
	return p
}
