package notifications

import (
	"context"
	"fmt"
)

// Channel identifies a delivery mechanism.
type Channel string

// Delivery channels.
const (
	ChannelEmail Channel = "email"
	ChannelLog   Channel = "log"
)

// Sender delivers rendered notifications over one channel.
type Sender interface {
	Type() Channel
	Send(ctx context.Context, notification Notification) error
}

// Dispatcher routes notifications to the sender for a channel.
type Dispatcher struct {
	senders map[Channel]Sender
}

// NewDispatcher creates a new notification dispatcher.
func NewDispatcher(senders ...Sender) *Dispatcher {
	senderMap := make(map[Channel]Sender)
	for _, s := range senders {
		senderMap[s.Type()] = s
	}
	return &Dispatcher{senders: senderMap}
}

// Has reports whether a sender is registered for channel.
func (d *Dispatcher) Has(channel Channel) bool {
	_, ok := d.senders[channel]
	return ok
}

// SendToChannel sends a notification through the channel's sender.
func (d *Dispatcher) SendToChannel(ctx context.Context, channel Channel, notification Notification) error {
	sender, ok := d.senders[channel]
	if !ok {
		return NewNonRetryableError(fmt.Errorf("no sender for channel %s", channel))
	}
	return sender.Send(ctx, notification)
}
