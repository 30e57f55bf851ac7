// Package bus decouples the gateway's WebSocket clients, platform
// channels, and sub-agent coordinator from each other: channels publish
// inbound platform messages and consume outbound ones, while WS clients
// subscribe to broadcast events (synthesized lessons).
package bus

import (
	"context"

	"github.com/nextlevelbuilder/goclaw-core/pkg/protocol"
)

// InboundMessage wraps a platform message with the channel it arrived on,
// for routing into the frame handler (§4.I: "wires the adapter's inbound
// callback back into the frame handler").
type InboundMessage struct {
	Channel string
	Message protocol.PlatformMessage
}

// OutboundMessage is a message to be delivered to a channel's chat.
type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
	Media   []protocol.MediaAttachment
}

// Event is a server-side notification broadcast to subscribed WS clients.
type Event struct {
	Name    string
	Payload any
}

// EventHandler handles a single broadcast event.
type EventHandler func(Event)

// EventPublisher abstracts event broadcast + per-client subscription.
// The gateway server and sub-agent coordinator depend on this interface,
// not the concrete MessageBus, so both can be swapped in tests.
type EventPublisher interface {
	Subscribe(id string, handler EventHandler)
	Unsubscribe(id string)
	Broadcast(event Event)
}

// MessageRouter abstracts inbound/outbound message routing between
// channels and the gateway.
type MessageRouter interface {
	PublishInbound(msg InboundMessage)
	ConsumeInbound(ctx context.Context) (InboundMessage, bool)
	PublishOutbound(msg OutboundMessage)
	SubscribeOutbound(ctx context.Context) (OutboundMessage, bool)
}
