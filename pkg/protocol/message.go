package protocol

// MessageKind enumerates the content kinds a PlatformMessage can carry.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindImage    MessageKind = "image"
	KindVideo    MessageKind = "video"
	KindAudio    MessageKind = "audio"
	KindDocument MessageKind = "document"
	KindLocation MessageKind = "location"
	KindContact  MessageKind = "contact"
	KindSticker  MessageKind = "sticker"
	KindCall     MessageKind = "call"
)

// MediaAttachment carries a single piece of media on a PlatformMessage.
// Bytes are held decoded in memory; wire encoding (base64) is handled at
// the Frame boundary, not here.
type MediaAttachment struct {
	Kind      MessageKind
	Filename  string
	MimeType  string
	Size      int64
	Data      []byte
	Caption   string
	Thumbnail []byte
}

// PlatformMessage is the uniform message shape every PlatformAdapter
// produces and consumes (§3, §4.H).
type PlatformMessage struct {
	ID         string
	Platform   string
	SenderID   string
	SenderName string
	ChatID     string
	ChatName   string
	Content    string
	Kind       MessageKind
	// Attachments preserves the order attachments were received/sent in.
	Attachments []MediaAttachment
	Timestamp   int64 // unix millis
	ReplyTo     string
	Metadata    map[string]string
	Encrypted   bool
}
