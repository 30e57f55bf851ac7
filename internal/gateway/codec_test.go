package gateway

import "testing"

func TestCodec_DisabledIsPassthrough(t *testing.T) {
	c, err := NewCodec("")
	if err != nil {
		t.Fatalf("NewCodec(\"\"): %v", err)
	}
	if c.Enabled() {
		t.Fatal("expected empty password to produce a disabled codec")
	}

	plaintext := []byte(`{"type":"message"}`)
	enc, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if string(enc) != string(plaintext) {
		t.Errorf("Encrypt on disabled codec should be a no-op, got %q", enc)
	}
	if string(c.Decrypt(plaintext)) != string(plaintext) {
		t.Error("Decrypt on disabled codec should be a no-op")
	}
}

func TestCodec_EncryptDecryptRoundtrip(t *testing.T) {
	c, err := NewCodec("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	if !c.Enabled() {
		t.Fatal("expected non-empty password to enable the codec")
	}

	plaintext := []byte(`{"type":"message","content":"hello"}`)
	enc, err := c.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if string(enc) == string(plaintext) {
		t.Error("ciphertext should not equal plaintext")
	}

	dec := c.Decrypt(enc)
	if string(dec) != string(plaintext) {
		t.Errorf("Decrypt = %q, want %q", dec, plaintext)
	}
}

func TestCodec_DecryptFallsThroughOnGarbage(t *testing.T) {
	c, err := NewCodec("password")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	garbage := []byte("not valid base64 ciphertext at all!!")
	if string(c.Decrypt(garbage)) != string(garbage) {
		t.Error("expected Decrypt to fall through to the original payload on failure")
	}
}

func TestCodec_DecryptWrongPasswordFallsThrough(t *testing.T) {
	c1, _ := NewCodec("password-one")
	c2, _ := NewCodec("password-two")

	plaintext := []byte("secret")
	enc, err := c1.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	dec := c2.Decrypt(enc)
	if string(dec) != string(enc) {
		t.Error("expected decrypt with wrong key to fall through to the ciphertext unchanged")
	}
}
