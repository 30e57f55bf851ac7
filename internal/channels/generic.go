package channels

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/goclaw-core/pkg/protocol"
)

// GenericAdapter is the permissive fallback for unknown platform names
// (§4.I item 4): it satisfies the full contract with uniform failure
// returns, so every declared platform stays reachable without the
// gateway needing a special case.
type GenericAdapter struct {
	name string
}

func NewGenericAdapter(name string) *GenericAdapter {
	return &GenericAdapter{name: name}
}

func (a *GenericAdapter) Name() string { return a.name }

func (a *GenericAdapter) Initialize(ctx context.Context) error { return nil }

func (a *GenericAdapter) SendText(ctx context.Context, chatID, text, replyTo string) (*protocol.PlatformMessage, error) {
	return nil, fmt.Errorf("channels: %q is not a registered platform", a.name)
}

func (a *GenericAdapter) SendMedia(ctx context.Context, chatID, path, caption string, kind protocol.MessageKind) (*protocol.PlatformMessage, error) {
	return nil, fmt.Errorf("channels: %q is not a registered platform", a.name)
}

func (a *GenericAdapter) SendDocument(ctx context.Context, chatID, path, caption string) (*protocol.PlatformMessage, error) {
	return nil, fmt.Errorf("channels: %q is not a registered platform", a.name)
}

func (a *GenericAdapter) DownloadMedia(ctx context.Context, messageID, savePath string) (string, error) {
	return "", fmt.Errorf("channels: %q is not a registered platform", a.name)
}

func (a *GenericAdapter) MakeCall(ctx context.Context, chatID string, video bool) error {
	return fmt.Errorf("channels: %q is not a registered platform", a.name)
}

func (a *GenericAdapter) HandleWebhook(ctx context.Context, raw []byte) (*protocol.PlatformMessage, error) {
	return nil, fmt.Errorf("channels: %q is not a registered platform", a.name)
}

func (a *GenericAdapter) Shutdown(ctx context.Context) error { return nil }
