package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/nextlevelbuilder/goclaw-core/internal/bus"
	"github.com/nextlevelbuilder/goclaw-core/internal/channels"
	"github.com/nextlevelbuilder/goclaw-core/internal/mcptool"
	"github.com/nextlevelbuilder/goclaw-core/internal/permissions"
	"github.com/nextlevelbuilder/goclaw-core/internal/providers"
	"github.com/nextlevelbuilder/goclaw-core/internal/subagent"
	"github.com/nextlevelbuilder/goclaw-core/pkg/protocol"
)

type recordingSender struct {
	mu     sync.Mutex
	frames []any
}

func (r *recordingSender) send(ctx context.Context, clientID string, frame any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
	return true
}

func (r *recordingSender) last() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

func newTestBridge(t *testing.T) (*Bridge, *recordingSender, *bus.MessageBus) {
	t.Helper()
	registry := channels.NewRegistry(func(protocol.PlatformMessage) {})
	msgBus := bus.NewMessageBus()
	coord := subagent.NewCoordinator(subagent.Config{
		Provider:  &providers.ScriptedProvider{Responses: []*providers.Response{{Text: "VALID"}, {Text: "VALID"}, {Text: "done"}, {Text: `{"summary":"ok"}`}}},
		Policy:    permissions.AllowAll,
		MCPRouter: mcptool.NewRouter(nil),
	})
	bridge := NewBridge(registry, msgBus, coord)
	sender := &recordingSender{}
	bridge.SetSender(sender.send)
	return bridge, sender, msgBus
}

func TestBridge_HandlePlatformConnect(t *testing.T) {
	bridge, sender, _ := newTestBridge(t)

	bridge.Handle(context.Background(), "client-1", &protocol.Frame{
		Type:     protocol.FrameTypePlatformConnect,
		Platform: "telegram",
	})

	reply, ok := sender.last().(map[string]any)
	if !ok {
		t.Fatalf("expected a map reply, got %T", sender.last())
	}
	if reply["type"] != "platform_connected" || reply["platform"] != "telegram" {
		t.Errorf("unexpected reply: %v", reply)
	}
}

func TestBridge_HandleInboundMessage_PublishesToBus(t *testing.T) {
	bridge, _, msgBus := newTestBridge(t)

	bridge.Handle(context.Background(), "client-1", &protocol.Frame{
		Type:     protocol.FrameTypeMessage,
		Platform: "telegram",
		ChatID:   "chat-1",
		Content:  "hello",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msg, ok := msgBus.ConsumeInbound(ctx)
	if !ok {
		t.Fatal("expected a published inbound message")
	}
	if msg.Channel != "telegram" || msg.Message.Content != "hello" {
		t.Errorf("unexpected inbound message: %+v", msg)
	}
}

func TestBridge_HandleCommand_UnknownCommand(t *testing.T) {
	bridge, sender, _ := newTestBridge(t)

	bridge.Handle(context.Background(), "client-1", &protocol.Frame{
		Type:     protocol.FrameTypeCommand,
		Metadata: map[string]any{"command": "not_a_real_command"},
	})

	reply, ok := sender.last().(protocol.ErrorFrame)
	if !ok {
		t.Fatalf("expected an ErrorFrame, got %T", sender.last())
	}
	if reply.Error != "unknown command" {
		t.Errorf("Error = %q, want 'unknown command'", reply.Error)
	}
}

func TestBridge_HandleCommand_Spawn(t *testing.T) {
	bridge, sender, _ := newTestBridge(t)

	bridge.Handle(context.Background(), "client-1", &protocol.Frame{
		Type: protocol.FrameTypeCommand,
		Metadata: map[string]any{
			"command": "spawn",
			"name":    "agent-x",
			"task":    "do a thing",
			"role":    "assistant",
		},
	})

	reply, ok := sender.last().(map[string]any)
	if !ok {
		t.Fatalf("expected a map reply, got %T", sender.last())
	}
	if reply["type"] != "spawn_result" || reply["name"] != "agent-x" {
		t.Errorf("unexpected reply: %v", reply)
	}
}

func TestBridge_Handle_UnhandledFrameTypeIsIgnored(t *testing.T) {
	bridge, sender, _ := newTestBridge(t)

	bridge.Handle(context.Background(), "client-1", &protocol.Frame{Type: "something_else"})

	if sender.last() != nil {
		t.Error("expected no reply for an unhandled frame type")
	}
}
