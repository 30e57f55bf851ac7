package gateway

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// codecSalt is a static salt: the spec calls for a shared-password +
// static-salt scheme, not per-message salts (§4.E). Key derivation is
// PBKDF2-HMAC-SHA256 at 100,000 iterations.
var codecSalt = []byte("goclaw-gateway-frame-codec-v1")

const pbkdf2Iterations = 100_000

// Codec optionally encrypts/decrypts frame payloads with a symmetric key
// derived from a shared password (§4.E). A zero-value Codec (no
// password) is a no-op passthrough.
type Codec struct {
	gcm cipher.AEAD
}

// NewCodec derives an AES-256-GCM key from password via PBKDF2-HMAC-SHA256.
// An empty password disables encryption: Encrypt/Decrypt become passthrough.
func NewCodec(password string) (*Codec, error) {
	if password == "" {
		return &Codec{}, nil
	}
	key := pbkdf2.Key([]byte(password), codecSalt, pbkdf2Iterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{gcm: gcm}, nil
}

// Enabled reports whether this codec actually encrypts.
func (c *Codec) Enabled() bool { return c != nil && c.gcm != nil }

// Encrypt wraps plaintext as base64(nonce || ciphertext). A disabled
// codec returns plaintext unchanged.
func (c *Codec) Encrypt(plaintext []byte) ([]byte, error) {
	if !c.Enabled() {
		return plaintext, nil
	}
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	sealed := c.gcm.Seal(nonce, nonce, plaintext, nil)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sealed)))
	base64.StdEncoding.Encode(out, sealed)
	return out, nil
}

// Decrypt unwraps a payload encrypted by Encrypt. Per §4.E, a decrypt
// failure MUST fall through to return the ciphertext unchanged — the
// caller's JSON parse will then reject it, which is the correct
// behavior for unencrypted clients talking to an encryption-enabled
// gateway (and vice versa).
func (c *Codec) Decrypt(payload []byte) []byte {
	if !c.Enabled() {
		return payload
	}
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(payload)))
	n, err := base64.StdEncoding.Decode(raw, payload)
	if err != nil {
		return payload
	}
	raw = raw[:n]
	nonceSize := c.gcm.NonceSize()
	if len(raw) < nonceSize {
		return payload
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plain, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return payload
	}
	return plain
}
