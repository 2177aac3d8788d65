package escalation

import (
	"fmt"
	"time"

	"github.com/medops/opsdesk/internal/domain"
)

// Countdown is the SLA state of an incident at a given instant.
type Countdown struct {
	Deadline time.Time `json:"deadline"`
	Overdue  bool      `json:"overdue"`
	Hours    int       `json:"hours"`
	Minutes  int       `json:"minutes"`
}

// CountdownAt computes the remaining (or overdue) time of the incident's SLA
// at now. The magnitude is floored to whole minutes.
func CountdownAt(incident domain.Incident, now time.Time) Countdown {
	deadline := incident.Deadline()
	diff := deadline.Sub(now)

	overdue := now.After(deadline)
	if diff < 0 {
		diff = -diff
	}
	total := int(diff / time.Minute)

	return Countdown{
		Deadline: deadline,
		Overdue:  overdue,
		Hours:    total / 60,
		Minutes:  total % 60,
	}
}

// Remaining returns the magnitude as a duration.
func (c Countdown) Remaining() time.Duration {
	return time.Duration(c.Hours)*time.Hour + time.Duration(c.Minutes)*time.Minute
}

// Text renders the countdown the way the incident board shows it.
func (c Countdown) Text() string {
	value := fmt.Sprintf("%dj %dm", c.Hours, c.Minutes)
	if c.Overdue {
		return "Terlambat " + value
	}
	return "Sisa " + value
}
