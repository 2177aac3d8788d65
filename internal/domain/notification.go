package domain

// Priority represents the severity level of an operational notification.
type Priority string

// Priority levels, ordered from lowest to highest.
const (
	PriorityRendah Priority = "Rendah"
	PrioritySedang Priority = "Sedang"
	PriorityTinggi Priority = "Tinggi"
	PriorityKritis Priority = "Kritis"
)

// IsValid checks if the priority is one of the known levels.
func (p Priority) IsValid() bool {
	return p.Rank() > 0
}

// Rank returns the position of the priority in the ordered enumeration.
// Unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityRendah:
		return 1
	case PrioritySedang:
		return 2
	case PriorityTinggi:
		return 3
	case PriorityKritis:
		return 4
	}
	return 0
}

// TriggersEscalation reports whether notifications of this priority
// become incidents.
func (p Priority) TriggersEscalation() bool {
	return p == PriorityTinggi || p == PriorityKritis
}

// Lifecycle represents the status of a notification.
type Lifecycle string

// Notification lifecycle states.
const (
	LifecycleNew          Lifecycle = "new"
	LifecycleAcknowledged Lifecycle = "acknowledged"
	LifecycleEscalated    Lifecycle = "escalated"
	LifecycleResolved     Lifecycle = "resolved"
)

// IsValid checks if the lifecycle state is known.
func (l Lifecycle) IsValid() bool {
	switch l {
	case LifecycleNew, LifecycleAcknowledged, LifecycleEscalated, LifecycleResolved:
		return true
	}
	return false
}

// Notification represents an operational alert surfaced to staff.
type Notification struct {
	ID          string       `json:"id"`
	Priority    Priority     `json:"priority"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Location    string       `json:"location"`
	Time        string       `json:"time"`
	ActionLabel string       `json:"action_label,omitempty"`
	Category    TargetModule `json:"category,omitempty"`
	Lifecycle   Lifecycle    `json:"lifecycle"`
}

// IsCritical reports whether the notification belongs in the critical-only view:
// an escalation-level priority that has not been resolved yet.
func (n Notification) IsCritical() bool {
	return n.Priority.TriggersEscalation() && n.Lifecycle != LifecycleResolved
}
