package escalation

import (
	"fmt"
	"time"

	"github.com/medops/opsdesk/internal/domain"
)

// SLA budgets in minutes.
const (
	SLAMinutesKritis  = 60
	SLAMinutesDefault = 180
)

// Default responder teams.
const (
	TeamPriorityResponse  = "priority incident response team"
	TeamMedicalOperations = "medical operations team"
	TeamCoordination      = "coordination team"
)

// Escalation is the Incident and Task pair derived from one notification.
type Escalation struct {
	Incident domain.Incident `json:"incident"`
	Task     domain.Task     `json:"task"`
}

// SLAMinutesFor returns the SLA budget for an incident of the given severity.
func SLAMinutesFor(severity domain.Priority) int {
	if severity == domain.PriorityKritis {
		return SLAMinutesKritis
	}
	return SLAMinutesDefault
}

// DefaultTeam returns the responder group assigned to a severity.
func DefaultTeam(severity domain.Priority) string {
	switch severity {
	case domain.PriorityKritis:
		return TeamPriorityResponse
	case domain.PriorityTinggi:
		return TeamMedicalOperations
	default:
		return TeamCoordination
	}
}

// NewEscalation derives an incident and its follow-up task from an eligible
// notification. Both IDs share seed. The task due date is the UTC calendar
// date of the SLA deadline; use Incident.Deadline for the precise instant.
func NewEscalation(n domain.Notification, seed string, createdAt time.Time) Escalation {
	sla := SLAMinutesFor(n.Priority)
	team := DefaultTeam(n.Priority)

	incident := domain.Incident{
		ID:                   IncidentIDPrefix + seed,
		Title:                n.Title,
		SourceNotificationID: n.ID,
		Severity:             n.Priority,
		Status:               domain.IncidentStatusOpen,
		Team:                 team,
		CreatedAt:            createdAt,
		SLAMinutes:           sla,
		Category:             n.Category,
	}

	task := domain.Task{
		ID:               TaskIDPrefix + seed,
		Title:            fmt.Sprintf("Tindak lanjut: %s", n.Title),
		Description:      taskDescription(n),
		Assignee:         team,
		DueDate:          incident.Deadline().UTC().Format(domain.DueDateLayout),
		LinkedIncidentID: incident.ID,
	}

	return Escalation{Incident: incident, Task: task}
}

func taskDescription(n domain.Notification) string {
	switch {
	case n.Description != "" && n.Location != "":
		return fmt.Sprintf("%s (%s)", n.Description, n.Location)
	case n.Location != "":
		return n.Location
	default:
		return n.Description
	}
}
