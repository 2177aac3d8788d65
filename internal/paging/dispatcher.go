package paging

import (
	"context"
	"fmt"

	"github.com/medops/opsdesk/internal/domain"
)

// Dispatcher routes messages to the sender of their channel type.
type Dispatcher struct {
	senders map[domain.ChannelType]Sender
}

// NewDispatcher creates a dispatcher over the given senders.
func NewDispatcher(senders ...Sender) *Dispatcher {
	senderMap := make(map[domain.ChannelType]Sender, len(senders))
	for _, s := range senders {
		senderMap[s.Type()] = s
	}
	return &Dispatcher{senders: senderMap}
}

// Supports reports whether a sender is registered for the channel type.
func (d *Dispatcher) Supports(channelType domain.ChannelType) bool {
	_, ok := d.senders[channelType]
	return ok
}

// SendToChannel sends one message through the sender for channelType.
func (d *Dispatcher) SendToChannel(ctx context.Context, channelType domain.ChannelType, msg Message) error {
	sender, ok := d.senders[channelType]
	if !ok {
		return NewNonRetryableError(fmt.Errorf("%w: %s", ErrNoSender, channelType))
	}
	return sender.Send(ctx, msg)
}
