package escalation

import "errors"

// Store errors.
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrIncidentNotFound     = errors.New("incident not found")
	ErrStoreClosed          = errors.New("store is closed")
)

// Validation errors.
var (
	ErrInvalidPriority       = errors.New("invalid priority")
	ErrInvalidLifecycle      = errors.New("invalid lifecycle state")
	ErrInvalidIncidentStatus = errors.New("invalid incident status")
	ErrInvalidCategory       = errors.New("invalid category")
	ErrTitleRequired         = errors.New("title is required")
)

// Transition errors.
var (
	ErrIllegalTransition = errors.New("illegal lifecycle transition")
)
