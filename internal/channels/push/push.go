// Package push wires Firebase Cloud Messaging as a send-only channel
// (§4.I "(ADDED)"), grounded on original_source's
// adapters/push_notification_adapter.py: push is outbound-only, there
// is no inbound side to poll or receive a webhook from.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/nextlevelbuilder/goclaw-core/internal/channels"
	"github.com/nextlevelbuilder/goclaw-core/pkg/protocol"
)

const fcmScope = "https://www.googleapis.com/auth/firebase.messaging"

// Adapter implements channels.Adapter as a send-only FCM v1 HTTP
// client. Every inbound-shaped method returns an error: push has no
// reverse channel.
type Adapter struct {
	projectID  string
	tokSource  oauth2.TokenSource
	httpClient *http.Client
}

// New constructs a push adapter from a project id and a
// service-account credentials file path. Satisfies channels.Factory.
func New(credentials, cfg map[string]any, onInbound channels.InboundFunc) (channels.Adapter, error) {
	projectID, _ := credentials["project_id"].(string)
	credsFile, _ := credentials["credentials_file"].(string)
	if projectID == "" || credsFile == "" {
		return nil, fmt.Errorf("push: missing credentials.project_id or credentials.credentials_file")
	}

	ts, err := tokenSourceFromFile(credsFile)
	if err != nil {
		return nil, fmt.Errorf("push: load credentials: %w", err)
	}

	return &Adapter{
		projectID:  projectID,
		tokSource:  ts,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func tokenSourceFromFile(path string) (oauth2.TokenSource, error) {
	jwtCfg, err := google.JWTConfigFromJSONFile(path, fcmScope)
	if err != nil {
		return nil, err
	}
	return jwtCfg.TokenSource(context.Background()), nil
}

func (a *Adapter) Name() string { return "push" }

func (a *Adapter) Initialize(ctx context.Context) error { return nil }

type fcmEnvelope struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification *fcmNotification  `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Body string `json:"body"`
}

type fcmResponse struct {
	Name  string `json:"name"`
	Error *struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SendText delivers a notification push to the device token carried
// in chatID. Push tokens, not chat ids, are the addressing unit here
// — the registry's uniform contract still calls the parameter chatID.
func (a *Adapter) SendText(ctx context.Context, chatID, text, replyTo string) (*protocol.PlatformMessage, error) {
	envelope := fcmEnvelope{Message: fcmMessage{
		Token:        chatID,
		Notification: &fcmNotification{Body: text},
	}}

	id, err := a.send(ctx, envelope)
	if err != nil {
		return nil, err
	}
	return &protocol.PlatformMessage{
		ID: id, Platform: "push", ChatID: chatID, Content: text,
		Kind: protocol.KindText, Timestamp: time.Now().UnixMilli(),
	}, nil
}

func (a *Adapter) SendMedia(ctx context.Context, chatID, path, caption string, kind protocol.MessageKind) (*protocol.PlatformMessage, error) {
	return nil, fmt.Errorf("push: media attachments are not supported by FCM notifications")
}

func (a *Adapter) SendDocument(ctx context.Context, chatID, path, caption string) (*protocol.PlatformMessage, error) {
	return nil, fmt.Errorf("push: document attachments are not supported by FCM notifications")
}

func (a *Adapter) DownloadMedia(ctx context.Context, messageID, savePath string) (string, error) {
	return "", fmt.Errorf("push: channel is send-only, no media to download")
}

func (a *Adapter) MakeCall(ctx context.Context, chatID string, video bool) error {
	return fmt.Errorf("push: channel is send-only, calling is not supported")
}

func (a *Adapter) HandleWebhook(ctx context.Context, raw []byte) (*protocol.PlatformMessage, error) {
	return nil, fmt.Errorf("push: channel is send-only, no inbound webhook")
}

func (a *Adapter) Shutdown(ctx context.Context) error { return nil }

// send posts envelope to the FCM v1 send endpoint, retrying once on a
// transient failure (§4.H): UNAUTHENTICATED/NOT_FOUND do not retry.
func (a *Adapter) send(ctx context.Context, envelope fcmEnvelope) (string, error) {
	id, status, err := a.doSend(ctx, envelope)
	if err == nil {
		return id, nil
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound {
		return "", err
	}
	time.Sleep(500 * time.Millisecond)
	id, _, err = a.doSend(ctx, envelope)
	return id, err
}

func (a *Adapter) doSend(ctx context.Context, envelope fcmEnvelope) (id string, status int, err error) {
	tok, err := a.tokSource.Token()
	if err != nil {
		return "", 0, fmt.Errorf("push: token: %w", err)
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return "", 0, err
	}

	url := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", a.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	var parsed fcmResponse
	_ = json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode >= 300 {
		msg := "push: request failed"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", resp.StatusCode, fmt.Errorf("%s (status %d)", msg, resp.StatusCode)
	}
	return parsed.Name, resp.StatusCode, nil
}
