package gateway

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/goclaw-core/pkg/protocol"
)

// clientID derives the deterministic registry key from peer+userAgent
// (§3: "id is deterministic from peer+userAgent hash so reconnects
// converge"), prefixed with the connection class for readability in logs.
// The peer's port is dropped before hashing: a reconnect arrives from a
// new ephemeral port, so only the host part is stable across reconnects.
func clientID(class ConnectionClass, peer, userAgent string) string {
	sum := md5.Sum([]byte(stripPort(peer) + userAgent))
	return fmt.Sprintf("%s-%s", class, hex.EncodeToString(sum[:])[:8])
}

// Client is one accepted WebSocket connection and its read loop (§4.F).
type Client struct {
	conn   *websocket.Conn
	server *Server
	info   *ClientConnection
}

func newClient(conn *websocket.Conn, server *Server, info *ClientConnection) *Client {
	return &Client{conn: conn, server: server, info: info}
}

// Close closes the underlying transport. Satisfies the registry's
// transport interface.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Run executes the per-connection read loop (§4.F steps 1-3) until the
// transport errors or ctx is canceled. Unregistering and closing the
// transport on exit is left to the caller (Server.handleWebSocket).
func (c *Client) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			// Transport error: break the loop (§4.F.2.b); TRANSPORT
			// errors are logged and the connection evicted, never a crash.
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("gateway.transport_error", "client_id", c.info.ID, "error", err)
			}
			return
		}

		c.handleRaw(ctx, raw)
	}
}

func (c *Client) handleRaw(ctx context.Context, raw []byte) {
	// normalize payload: decrypt (if enabled) before UTF-8/JSON handling.
	// A decrypt failure returns the ciphertext unchanged (§4.E); the
	// subsequent JSON parse then rejects it, which is correct behavior.
	plain := c.server.codec.Decrypt(raw)

	if !c.server.rateLimiter.Admit(c.info.Class, c.info.ID) {
		if c.server.metrics != nil {
			c.server.metrics.rateDenied.WithLabelValues(string(c.info.Class)).Inc()
		}
		c.SendError("Rate limit exceeded")
		return
	}

	var frame protocol.Frame
	if err := json.Unmarshal(plain, &frame); err != nil {
		c.SendError("Invalid JSON")
		return
	}

	// Attach trust metadata, overwriting any attacker-supplied _meta (I4).
	frame.Meta = &protocol.Meta{
		ConnectionType: string(c.info.Class),
		ClientID:       c.info.ID,
		IPAddress:      c.info.Peer,
		Authenticated:  c.info.Authenticated,
	}

	if c.server.handler != nil {
		c.server.handler(ctx, c.info.ID, &frame)
	}
}

// SendFrame serializes and writes frame to the client, encrypting the
// payload if the gateway's codec is enabled. Marshal, encrypt and write
// errors are returned; Server.Send evicts the client on failure.
func (c *Client) SendFrame(frame any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	data, err = c.server.codec.Encrypt(data)
	if err != nil {
		return err
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// SendError best-effort sends an egress error frame (§6). Failures are
// swallowed — this is a notification, not a guaranteed delivery.
func (c *Client) SendError(msg string) {
	if err := c.SendFrame(protocol.ErrorFrame{Error: msg}); err != nil {
		slog.Warn("gateway.send_error_failed", "client_id", c.info.ID, "error", err)
	}
}

// SendEvent best-effort pushes a server-side event (e.g. a synthesized
// lesson) to this client.
func (c *Client) SendEvent(event protocol.Event) {
	if err := c.SendFrame(event); err != nil {
		slog.Warn("gateway.send_event_failed", "client_id", c.info.ID, "error", err)
	}
}
