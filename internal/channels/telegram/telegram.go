// Package telegram adapts the Telegram Bot API (via telego) to the
// channels.Adapter contract (§4.H, §4.I).
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/goclaw-core/internal/channels"
	"github.com/nextlevelbuilder/goclaw-core/pkg/protocol"
)

// Adapter implements channels.Adapter over a long-polling telego.Bot.
type Adapter struct {
	bot        *telego.Bot
	onInbound  channels.InboundFunc
	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New constructs a Telegram adapter. Satisfies channels.Factory.
func New(credentials, cfg map[string]any, onInbound channels.InboundFunc) (channels.Adapter, error) {
	token, _ := credentials["token"].(string)
	if token == "" {
		return nil, fmt.Errorf("telegram: missing credentials.token")
	}
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	return &Adapter{bot: bot, onInbound: onInbound}, nil
}

func (a *Adapter) Name() string { return "telegram" }

// Initialize starts long-polling for updates and forwards each one to
// onInbound. Idempotent: a second call is a no-op.
func (a *Adapter) Initialize(ctx context.Context) error {
	if a.pollCancel != nil {
		return nil
	}
	pollCtx, cancel := context.WithCancel(ctx)
	a.pollCancel = cancel
	a.pollDone = make(chan struct{})

	updates, err := a.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{Timeout: 30})
	if err != nil {
		cancel()
		return fmt.Errorf("telegram: start polling: %w", err)
	}

	go func() {
		defer close(a.pollDone)
		for update := range updates {
			if update.Message != nil && a.onInbound != nil {
				a.onInbound(toPlatformMessage(update.Message))
			}
		}
	}()
	return nil
}

func toPlatformMessage(m *telego.Message) protocol.PlatformMessage {
	msg := protocol.PlatformMessage{
		ID:         strconv.Itoa(m.MessageID),
		Platform:   "telegram",
		ChatID:     strconv.FormatInt(m.Chat.ID, 10),
		Content:    m.Text,
		Kind:       protocol.KindText,
		Timestamp:  int64(m.Date) * 1000,
	}
	if m.From != nil {
		msg.SenderID = strconv.FormatInt(m.From.ID, 10)
		msg.SenderName = m.From.FirstName
	}
	return msg
}

func (a *Adapter) SendText(ctx context.Context, chatID, text, replyTo string) (*protocol.PlatformMessage, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: invalid chat id %q: %w", chatID, err)
	}
	msg := tu.Message(tu.ID(id), text)
	sent, err := withRetry(ctx, func() (*telego.Message, error) {
		return a.bot.SendMessage(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	out := toPlatformMessage(sent)
	return &out, nil
}

func (a *Adapter) SendMedia(ctx context.Context, chatID, path, caption string, kind protocol.MessageKind) (*protocol.PlatformMessage, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: invalid chat id %q: %w", chatID, err)
	}
	photo := tu.Photo(tu.ID(id), tu.FileFromDisk(path))
	photo.Caption = caption
	sent, err := withRetry(ctx, func() (*telego.Message, error) {
		return a.bot.SendPhoto(ctx, photo)
	})
	if err != nil {
		return nil, err
	}
	out := toPlatformMessage(sent)
	return &out, nil
}

func (a *Adapter) SendDocument(ctx context.Context, chatID, path, caption string) (*protocol.PlatformMessage, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: invalid chat id %q: %w", chatID, err)
	}
	doc := tu.Document(tu.ID(id), tu.FileFromDisk(path))
	doc.Caption = caption
	sent, err := withRetry(ctx, func() (*telego.Message, error) {
		return a.bot.SendDocument(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	out := toPlatformMessage(sent)
	return &out, nil
}

func (a *Adapter) DownloadMedia(ctx context.Context, messageID, savePath string) (string, error) {
	return "", fmt.Errorf("telegram: download_media not implemented")
}

func (a *Adapter) MakeCall(ctx context.Context, chatID string, video bool) error {
	return fmt.Errorf("telegram: voice/video calls are not supported by the Bot API")
}

func (a *Adapter) HandleWebhook(ctx context.Context, raw []byte) (*protocol.PlatformMessage, error) {
	return nil, fmt.Errorf("telegram: adapter runs in long-polling mode, no webhook")
}

func (a *Adapter) Shutdown(ctx context.Context) error {
	if a.pollCancel != nil {
		a.pollCancel()
		<-a.pollDone
	}
	return nil
}

// withRetry retries a failed call once after a 500ms pause. It does not
// inspect the error, so every failure is retried once, including
// 401/403/404-class ones; the 429 case is covered by the same single
// retry.
func withRetry(ctx context.Context, fn func() (*telego.Message, error)) (*telego.Message, error) {
	msg, err := fn()
	if err == nil {
		return msg, nil
	}
	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return fn()
}
