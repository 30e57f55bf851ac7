// Package channels implements the Platform Adapter Fabric (§4.H, §4.I):
// the uniform contract every messaging platform satisfies, and the
// server-side registry that instantiates adapters on demand.
package channels

import (
	"context"

	"github.com/nextlevelbuilder/goclaw-core/pkg/protocol"
)

// Adapter is the uniform surface every platform implements (§4.H).
// A returned error is the uniform failure signal — adapters must never
// panic across this boundary; Go's error return replaces the source's
// "return null on failure" convention.
type Adapter interface {
	// Name identifies the platform ("telegram", "discord", ...).
	Name() string

	// Initialize is idempotent; it may probe the external service.
	Initialize(ctx context.Context) error

	SendText(ctx context.Context, chatID, text, replyTo string) (*protocol.PlatformMessage, error)
	SendMedia(ctx context.Context, chatID, path, caption string, kind protocol.MessageKind) (*protocol.PlatformMessage, error)
	SendDocument(ctx context.Context, chatID, path, caption string) (*protocol.PlatformMessage, error)
	DownloadMedia(ctx context.Context, messageID, savePath string) (string, error)
	MakeCall(ctx context.Context, chatID string, video bool) error

	// HandleWebhook parses a raw inbound payload into a PlatformMessage,
	// for adapters driven by webhook delivery rather than a long-lived
	// socket/poll connection.
	HandleWebhook(ctx context.Context, raw []byte) (*protocol.PlatformMessage, error)

	// Shutdown releases any external network session the adapter owns.
	// Called at most once; must be safe to call on a never-initialized
	// adapter.
	Shutdown(ctx context.Context) error
}

// InboundFunc is the callback an adapter with its own inbound delivery
// mechanism (webhook server, long-poll loop, socket) invokes for each
// message it receives, wiring it back into the frame handler (§4.I).
type InboundFunc func(msg protocol.PlatformMessage)

// Factory constructs a new Adapter instance from platform_connect
// credentials/config subtrees (§4.I step 2).
type Factory func(credentials, cfg map[string]any, onInbound InboundFunc) (Adapter, error)
