// Package paging pages responder teams about newly created incidents.
package paging

import (
	"context"

	"github.com/medops/opsdesk/internal/domain"
)

// Message is a rendered page addressed to one channel target.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages over one channel type.
type Sender interface {
	Type() domain.ChannelType
	Send(ctx context.Context, msg Message) error
}
