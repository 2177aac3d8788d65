package escalation

import "github.com/medops/opsdesk/internal/domain"

// ProcessedSet holds the IDs of notifications already converted into an incident.
type ProcessedSet map[string]struct{}

// NewProcessedSet builds a set from the given IDs.
func NewProcessedSet(ids ...string) ProcessedSet {
	s := make(ProcessedSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether the notification ID has been processed.
func (s ProcessedSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Eligible returns, in input order, the notifications that must be escalated:
// an escalation-level priority and an ID absent from processed.
// It depends only on its arguments.
func Eligible(notifications []domain.Notification, processed ProcessedSet) []domain.Notification {
	var out []domain.Notification
	seen := make(map[string]struct{})

	for _, n := range notifications {
		if !n.Priority.TriggersEscalation() || processed.Has(n.ID) {
			continue
		}
		// a notification listed twice in one batch still yields one incident
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}
	return out
}
