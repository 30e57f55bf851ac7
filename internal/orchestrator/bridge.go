// Package orchestrator wires the gateway's frame handler to the
// platform registry, message bus, and sub-agent coordinator — the
// "orchestrator callback" the control-flow summary names as the
// destination of every trust-tagged inbound frame.
package orchestrator

import (
	"context"
	"log/slog"

	"github.com/nextlevelbuilder/goclaw-core/internal/bus"
	"github.com/nextlevelbuilder/goclaw-core/internal/channels"
	"github.com/nextlevelbuilder/goclaw-core/internal/providers"
	"github.com/nextlevelbuilder/goclaw-core/internal/subagent"
	"github.com/nextlevelbuilder/goclaw-core/pkg/protocol"
)

// Bridge dispatches gateway frames by type, keeping the gateway package
// free of any dependency on channels/bus/subagent.
type Bridge struct {
	registry    *channels.Registry
	msgBus      *bus.MessageBus
	coordinator *subagent.Coordinator
	sender      func(ctx context.Context, clientID string, frame any) bool
}

func NewBridge(registry *channels.Registry, msgBus *bus.MessageBus, coordinator *subagent.Coordinator) *Bridge {
	return &Bridge{registry: registry, msgBus: msgBus, coordinator: coordinator}
}

// SetSender wires the reply path (typically gateway.Server.Send) so
// command responses can be pushed back to the originating client.
func (b *Bridge) SetSender(sender func(ctx context.Context, clientID string, frame any) bool) {
	b.sender = sender
}

// Handle is installed as the gateway's Handler (§4.F register_handler).
func (b *Bridge) Handle(ctx context.Context, clientID string, frame *protocol.Frame) {
	switch frame.Type {
	case protocol.FrameTypePlatformConnect:
		b.handlePlatformConnect(ctx, clientID, frame)
	case protocol.FrameTypeMessage, protocol.FrameTypeMediaUpload:
		b.handleInboundMessage(frame)
	case protocol.FrameTypeCommand:
		b.handleCommand(ctx, clientID, frame)
	default:
		slog.Debug("orchestrator.unhandled_frame_type", "type", frame.Type)
	}
}

// handlePlatformConnect does not gate on frame.Meta.Authenticated: that
// flag only ever gets set for the DIRECT-TLS bearer-token path, and
// LOCAL/TUNNELED/VPN connections (the classes every existing platform
// integration connects over) are never Authenticated by that mechanism.
// "trusted and authenticated per §4.F" describes the frame already
// having passed through the gateway's trust-tagging read loop, not an
// additional per-command authorization gate here — matching the
// original source's equally permissive platform_connect handling.
func (b *Bridge) handlePlatformConnect(ctx context.Context, clientID string, frame *protocol.Frame) {
	_, err := b.registry.Connect(ctx, frame.Platform, frame.Credentials, frame.Config)
	if err != nil {
		b.reply(ctx, clientID, protocol.ErrorFrame{Error: err.Error()})
		return
	}
	b.reply(ctx, clientID, map[string]any{"type": "platform_connected", "platform": frame.Platform})
}

func (b *Bridge) handleInboundMessage(frame *protocol.Frame) {
	if b.msgBus == nil {
		return
	}
	kind := protocol.MessageKind(frame.MessageType)
	if kind == "" {
		kind = protocol.KindText
	}
	b.msgBus.PublishInbound(bus.InboundMessage{
		Channel: frame.Platform,
		Message: protocol.PlatformMessage{
			ID:         frame.ID,
			Platform:   frame.Platform,
			SenderID:   frame.SenderID,
			SenderName: frame.SenderName,
			ChatID:     frame.ChatID,
			Content:    frame.Content,
			Kind:       kind,
			Encrypted:  frame.Meta != nil && frame.Meta.Authenticated,
		},
	})
}

// handleCommand dispatches spawn/execute_tool commands (§4.K), carried
// on a "command" frame with Metadata["command"] naming the operation.
func (b *Bridge) handleCommand(ctx context.Context, clientID string, frame *protocol.Frame) {
	if b.coordinator == nil {
		b.reply(ctx, clientID, protocol.ErrorFrame{Error: "sub-agent coordinator not configured"})
		return
	}

	command, _ := frame.Metadata["command"].(string)
	switch command {
	case "spawn":
		name, _ := frame.Metadata["name"].(string)
		task, _ := frame.Metadata["task"].(string)
		role, _ := frame.Metadata["role"].(string)
		summary := b.coordinator.Spawn(ctx, subagent.SpawnRequest{Name: name, Task: task, Role: role})
		b.reply(ctx, clientID, map[string]any{"type": "spawn_result", "name": name, "summary": summary})

	case "execute_tool":
		agentName, _ := frame.Metadata["agent_name"].(string)
		toolName, _ := frame.Metadata["tool"].(string)
		args, _ := frame.Metadata["args"].(map[string]any)
		result := b.coordinator.ExecuteTool(ctx, agentName, providers.ToolCall{Name: toolName, Args: args})
		b.reply(ctx, clientID, map[string]any{"type": "execute_tool_result", "result": result})

	default:
		b.reply(ctx, clientID, protocol.ErrorFrame{Error: "unknown command"})
	}
}

func (b *Bridge) reply(ctx context.Context, clientID string, frame any) {
	if b.sender == nil {
		return
	}
	b.sender(ctx, clientID, frame)
}
