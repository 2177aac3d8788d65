// Package lifecycle holds the transition policies for notification and
// incident status fields.
//
// The two policies are intentionally different: notifications follow a gated
// state machine, incidents accept any known status from any other.
package lifecycle

import "github.com/medops/opsdesk/internal/domain"

// Outcome describes what a transition request did.
type Outcome string

// Transition outcomes.
const (
	OutcomeApplied   Outcome = "applied"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeRejected  Outcome = "rejected"
	OutcomeNotFound  Outcome = "not_found"
)

// Mutated reports whether the outcome changed a record.
func (o Outcome) Mutated() bool {
	return o == OutcomeApplied
}

var notificationSuccessors = map[domain.Lifecycle][]domain.Lifecycle{
	domain.LifecycleNew:          {domain.LifecycleAcknowledged, domain.LifecycleEscalated, domain.LifecycleResolved},
	domain.LifecycleAcknowledged: {domain.LifecycleEscalated, domain.LifecycleResolved},
	domain.LifecycleEscalated:    {domain.LifecycleResolved, domain.LifecycleAcknowledged},
	domain.LifecycleResolved:     {},
}

// NotificationPolicy is the gated notification state machine.
type NotificationPolicy struct{}

// CanTransition reports whether a notification may move from one lifecycle
// state to another. Reflexive requests are always allowed.
func (NotificationPolicy) CanTransition(from, to domain.Lifecycle) bool {
	if from == to {
		return true
	}
	for _, next := range notificationSuccessors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Successors returns the states reachable from the given state in one step.
func (NotificationPolicy) Successors(from domain.Lifecycle) []domain.Lifecycle {
	next := notificationSuccessors[from]
	out := make([]domain.Lifecycle, len(next))
	copy(out, next)
	return out
}

// Transition returns a copy of notifications where the one matching id has
// moved to the target state. The input slice is never modified, and the
// output equals the input unless the outcome is OutcomeApplied.
func (p NotificationPolicy) Transition(notifications []domain.Notification, id string, to domain.Lifecycle) ([]domain.Notification, Outcome) {
	out := make([]domain.Notification, len(notifications))
	copy(out, notifications)

	for i := range out {
		if out[i].ID != id {
			continue
		}
		from := out[i].Lifecycle
		switch {
		case !p.CanTransition(from, to):
			return out, OutcomeRejected
		case from == to:
			return out, OutcomeUnchanged
		}
		out[i].Lifecycle = to
		return out, OutcomeApplied
	}
	return out, OutcomeNotFound
}

// IncidentPolicy is the incident status policy. It has no ordering gate:
// any known status may be assigned from any other, so resolved and closed
// incidents can be reopened.
type IncidentPolicy struct{}

// CanTransition reports whether an incident may move to the target status.
// Only unknown target statuses are refused.
func (IncidentPolicy) CanTransition(_, to domain.IncidentStatus) bool {
	return to.IsValid()
}

// Transition returns a copy of incidents where the one matching id has its
// status set to the target. The input slice is never modified.
func (p IncidentPolicy) Transition(incidents []domain.Incident, id string, to domain.IncidentStatus) ([]domain.Incident, Outcome) {
	out := make([]domain.Incident, len(incidents))
	copy(out, incidents)

	for i := range out {
		if out[i].ID != id {
			continue
		}
		from := out[i].Status
		switch {
		case !p.CanTransition(from, to):
			return out, OutcomeRejected
		case from == to:
			return out, OutcomeUnchanged
		}
		out[i].Status = to
		return out, OutcomeApplied
	}
	return out, OutcomeNotFound
}
