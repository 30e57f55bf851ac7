// Package protocol defines the wire shapes exchanged between clients and
// the gateway: the inbound/outbound Frame and the server-push Event.
package protocol

import "encoding/json"

// ProtocolVersion is bumped whenever the wire frame shape changes
// incompatibly.
const ProtocolVersion = 1

// Frame types recognized by the gateway. Unknown types are passed through
// to the registered handler unchanged (the orchestrator decides what to
// do with them).
const (
	FrameTypeMessage         = "message"
	FrameTypeMediaUpload     = "media_upload"
	FrameTypePlatformConnect = "platform_connect"
	FrameTypeCommand         = "command"
)

// Attachment is the wire shape of a media attachment on an ingress frame.
type Attachment struct {
	Type      string `json:"type,omitempty"`
	Filename  string `json:"filename,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	Size      int64  `json:"size,omitempty"`
	Data      string `json:"data,omitempty"`      // base64
	Caption   string `json:"caption,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"` // base64
}

// Meta is the trust annotation the gateway stamps onto every forwarded
// frame. Clients may send a `_meta` field of their own; it is always
// discarded and replaced by the gateway (spec invariant I4).
type Meta struct {
	ConnectionType string `json:"connection_type"`
	ClientID       string `json:"client_id"`
	IPAddress      string `json:"ip_address"`
	Authenticated  bool   `json:"authenticated"`
}

// Frame is the JSON shape carried on the client WebSocket in both
// directions. Ingress frames are parsed into this shape; the gateway then
// overwrites Meta before handing the frame to the registered handler.
type Frame struct {
	Type        string         `json:"type"`
	ID          string         `json:"id,omitempty"`
	Platform    string         `json:"platform,omitempty"`
	SenderID    string         `json:"sender_id,omitempty"`
	SenderName  string         `json:"sender_name,omitempty"`
	ChatID      string         `json:"chat_id,omitempty"`
	Content     string         `json:"content,omitempty"`
	MessageType string         `json:"message_type,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Credentials map[string]any `json:"credentials,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
	Meta        *Meta          `json:"_meta,omitempty"`
}

// ErrorFrame is the egress shape sent back on any rejection (§6).
type ErrorFrame struct {
	Error string `json:"error"`
}

// Event is a server-pushed notification broadcast to subscribed clients
// (e.g. a synthesized Lesson, per §4.K.8).
type Event struct {
	Name    string `json:"name"`
	Payload any    `json:"payload,omitempty"`
}

func NewEvent(name string, payload any) *Event {
	return &Event{Name: name, Payload: payload}
}

// Marshal is a convenience wrapper used by transports that need raw bytes.
func (f *Frame) Marshal() ([]byte, error) { return json.Marshal(f) }
