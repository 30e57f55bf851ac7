// Package whatsapp adapts the WhatsApp Business Cloud API — plain HTTP,
// no vendor SDK — to the channels.Adapter contract (§4.H, §4.I). This is
// the one ambient-stdlib-net/http exception licensed directly by
// spec.md's non-goal on concrete platform wire protocols: there is no
// Go SDK in the example corpus for this API, so stdlib http is the
// correct tool rather than a gap in third-party coverage.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nextlevelbuilder/goclaw-core/internal/channels"
	"github.com/nextlevelbuilder/goclaw-core/pkg/protocol"
)

const graphBaseURL = "https://graph.facebook.com/v19.0"

// Adapter implements channels.Adapter over the WhatsApp Business Cloud
// webhook + Graph API. Inbound messages arrive via HandleWebhook, not a
// long-lived connection — there is nothing to poll or keep open.
type Adapter struct {
	phoneNumberID string
	accessToken   string
	httpClient    *http.Client
	onInbound     channels.InboundFunc
}

// New constructs a WhatsApp adapter. Satisfies channels.Factory.
func New(credentials, cfg map[string]any, onInbound channels.InboundFunc) (channels.Adapter, error) {
	token, _ := credentials["access_token"].(string)
	phoneID, _ := credentials["phone_number_id"].(string)
	if token == "" || phoneID == "" {
		return nil, fmt.Errorf("whatsapp: missing credentials.access_token or phone_number_id")
	}
	return &Adapter{
		phoneNumberID: phoneID,
		accessToken:   token,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		onInbound:     onInbound,
	}, nil
}

func (a *Adapter) Name() string { return "whatsapp" }

func (a *Adapter) Initialize(ctx context.Context) error { return nil }

type outboundTextPayload struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
	Context *struct {
		MessageID string `json:"message_id"`
	} `json:"context,omitempty"`
}

func (a *Adapter) SendText(ctx context.Context, chatID, text, replyTo string) (*protocol.PlatformMessage, error) {
	payload := outboundTextPayload{MessagingProduct: "whatsapp", To: chatID, Type: "text"}
	payload.Text.Body = text
	if replyTo != "" {
		payload.Context = &struct {
			MessageID string `json:"message_id"`
		}{MessageID: replyTo}
	}

	id, err := a.postMessage(ctx, payload)
	if err != nil {
		return nil, err
	}
	return &protocol.PlatformMessage{
		ID: id, Platform: "whatsapp", ChatID: chatID, Content: text,
		Kind: protocol.KindText, Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (a *Adapter) SendMedia(ctx context.Context, chatID, path, caption string, kind protocol.MessageKind) (*protocol.PlatformMessage, error) {
	return nil, fmt.Errorf("whatsapp: media upload requires a pre-hosted media URL, not implemented")
}

func (a *Adapter) SendDocument(ctx context.Context, chatID, path, caption string) (*protocol.PlatformMessage, error) {
	return nil, fmt.Errorf("whatsapp: document upload requires a pre-hosted media URL, not implemented")
}

func (a *Adapter) DownloadMedia(ctx context.Context, messageID, savePath string) (string, error) {
	return "", fmt.Errorf("whatsapp: download_media not implemented")
}

func (a *Adapter) MakeCall(ctx context.Context, chatID string, video bool) error {
	return fmt.Errorf("whatsapp: calling is not supported by the Cloud API")
}

type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					ID        string `json:"id"`
					From      string `json:"from"`
					Timestamp string `json:"timestamp"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// HandleWebhook parses a Cloud API webhook delivery into the first
// PlatformMessage it contains, and — if wired with an inbound callback —
// also forwards it, matching how the registry wires webhook-driven
// adapters back into the frame handler (§4.I).
func (a *Adapter) HandleWebhook(ctx context.Context, raw []byte) (*protocol.PlatformMessage, error) {
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("whatsapp: invalid webhook payload: %w", err)
	}
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				msg := protocol.PlatformMessage{
					ID: m.ID, Platform: "whatsapp", SenderID: m.From, ChatID: m.From,
					Content: m.Text.Body, Kind: protocol.KindText, Timestamp: time.Now().UnixMilli(),
				}
				if a.onInbound != nil {
					a.onInbound(msg)
				}
				return &msg, nil
			}
		}
	}
	return nil, fmt.Errorf("whatsapp: webhook payload carried no message")
}

func (a *Adapter) Shutdown(ctx context.Context) error { return nil }

type graphResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// postMessage sends payload to the Graph API messages endpoint,
// retrying once on a transient failure (§4.H): 429 retries, 401/403/404
// do not.
func (a *Adapter) postMessage(ctx context.Context, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	id, status, err := a.doPost(ctx, body)
	if err == nil {
		return id, nil
	}
	if status == 401 || status == 403 || status == 404 {
		return "", err
	}
	time.Sleep(500 * time.Millisecond)
	id, _, err = a.doPost(ctx, body)
	return id, err
}

func (a *Adapter) doPost(ctx context.Context, body []byte) (id string, status int, err error) {
	url := fmt.Sprintf("%s/%s/messages", graphBaseURL, a.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	var parsed graphResponse
	_ = json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode >= 300 {
		msg := "whatsapp: request failed"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", resp.StatusCode, fmt.Errorf("%s (status %d)", msg, resp.StatusCode)
	}
	if len(parsed.Messages) == 0 {
		return "", resp.StatusCode, fmt.Errorf("whatsapp: response carried no message id")
	}
	return parsed.Messages[0].ID, resp.StatusCode, nil
}
