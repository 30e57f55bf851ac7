// Package discord adapts the Discord gateway API (via discordgo) to
// the channels.Adapter contract (§4.H, §4.I).
package discord

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/goclaw-core/internal/channels"
	"github.com/nextlevelbuilder/goclaw-core/pkg/protocol"
)

// Adapter implements channels.Adapter over a discordgo.Session.
type Adapter struct {
	session   *discordgo.Session
	onInbound channels.InboundFunc
}

// New constructs a Discord adapter. Satisfies channels.Factory.
func New(credentials, cfg map[string]any, onInbound channels.InboundFunc) (channels.Adapter, error) {
	token, _ := credentials["token"].(string)
	if token == "" {
		return nil, fmt.Errorf("discord: missing credentials.token")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	a := &Adapter{session: session, onInbound: onInbound}
	session.AddHandler(a.handleMessage)
	return a, nil
}

func (a *Adapter) Name() string { return "discord" }

func (a *Adapter) Initialize(ctx context.Context) error {
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}
	return nil
}

func (a *Adapter) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || (s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	if a.onInbound == nil {
		return
	}
	a.onInbound(protocol.PlatformMessage{
		ID:         m.ID,
		Platform:   "discord",
		SenderID:   m.Author.ID,
		SenderName: m.Author.Username,
		ChatID:     m.ChannelID,
		Content:    m.Content,
		Kind:       protocol.KindText,
		Timestamp:  time.Now().UnixMilli(),
	})
}

func (a *Adapter) SendText(ctx context.Context, chatID, text, replyTo string) (*protocol.PlatformMessage, error) {
	sent, err := withRetry(func() (*discordgo.Message, error) {
		return a.session.ChannelMessageSend(chatID, text)
	})
	if err != nil {
		return nil, fmt.Errorf("discord: send text: %w", err)
	}
	return toPlatformMessage(sent), nil
}

func (a *Adapter) SendMedia(ctx context.Context, chatID, path, caption string, kind protocol.MessageKind) (*protocol.PlatformMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("discord: open media: %w", err)
	}
	defer f.Close()

	sent, err := withRetry(func() (*discordgo.Message, error) {
		return a.session.ChannelMessageSendComplex(chatID, &discordgo.MessageSend{
			Content: caption,
			Files:   []*discordgo.File{{Name: path, Reader: f}},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("discord: send media: %w", err)
	}
	return toPlatformMessage(sent), nil
}

func (a *Adapter) SendDocument(ctx context.Context, chatID, path, caption string) (*protocol.PlatformMessage, error) {
	return a.SendMedia(ctx, chatID, path, caption, protocol.KindDocument)
}

func (a *Adapter) DownloadMedia(ctx context.Context, messageID, savePath string) (string, error) {
	return "", fmt.Errorf("discord: download_media not implemented")
}

func (a *Adapter) MakeCall(ctx context.Context, chatID string, video bool) error {
	return fmt.Errorf("discord: voice/video calls are not supported by this adapter")
}

func (a *Adapter) HandleWebhook(ctx context.Context, raw []byte) (*protocol.PlatformMessage, error) {
	return nil, fmt.Errorf("discord: adapter runs on the gateway socket, no webhook")
}

func (a *Adapter) Shutdown(ctx context.Context) error {
	return a.session.Close()
}

func toPlatformMessage(m *discordgo.Message) *protocol.PlatformMessage {
	out := &protocol.PlatformMessage{
		ID:        m.ID,
		Platform:  "discord",
		ChatID:    m.ChannelID,
		Content:   m.Content,
		Kind:      protocol.KindText,
		Timestamp: time.Now().UnixMilli(),
	}
	if m.Author != nil {
		out.SenderID = m.Author.ID
		out.SenderName = m.Author.Username
	}
	return out
}

// withRetry applies §4.H's retry policy: one bounded retry with a short
// backoff on a transient failure. discordgo surfaces HTTP status via
// *discordgo.RESTError; 401/403/404 are treated as permanent.
func withRetry(fn func() (*discordgo.Message, error)) (*discordgo.Message, error) {
	msg, err := fn()
	if err == nil {
		return msg, nil
	}
	if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case 401, 403, 404:
			return nil, err
		}
	}
	time.Sleep(500 * time.Millisecond)
	return fn()
}
