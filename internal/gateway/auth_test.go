package gateway

import (
	"testing"
	"time"
)

func TestNewTokenVerifier_EmptySecretDisables(t *testing.T) {
	if tv := NewTokenVerifier("", "goclaw"); tv != nil {
		t.Fatal("expected nil TokenVerifier for an empty secret")
	}
}

func TestTokenVerifier_IssueThenVerify(t *testing.T) {
	tv := NewTokenVerifier("s3cret", "goclaw-gateway")
	token, err := tv.Issue("agent-1", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if !tv.Verify("Bearer " + token) {
		t.Fatal("expected a freshly issued token to verify")
	}
}

func TestTokenVerifier_RejectsMissingBearerPrefix(t *testing.T) {
	tv := NewTokenVerifier("s3cret", "goclaw-gateway")
	token, _ := tv.Issue("agent-1", time.Hour)
	if tv.Verify(token) {
		t.Fatal("expected verify to fail without the Bearer prefix")
	}
}

func TestTokenVerifier_RejectsEmptyHeader(t *testing.T) {
	tv := NewTokenVerifier("s3cret", "goclaw-gateway")
	if tv.Verify("") {
		t.Fatal("expected verify to fail on an empty header")
	}
}

func TestTokenVerifier_RejectsWrongSecret(t *testing.T) {
	signer := NewTokenVerifier("secret-a", "goclaw-gateway")
	verifier := NewTokenVerifier("secret-b", "goclaw-gateway")

	token, _ := signer.Issue("agent-1", time.Hour)
	if verifier.Verify("Bearer " + token) {
		t.Fatal("expected verify to fail with a mismatched signing secret")
	}
}

func TestTokenVerifier_RejectsExpiredToken(t *testing.T) {
	tv := NewTokenVerifier("s3cret", "goclaw-gateway")
	token, err := tv.Issue("agent-1", -time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if tv.Verify("Bearer " + token) {
		t.Fatal("expected an already-expired token to fail verification")
	}
}

func TestTokenVerifier_RejectsWrongIssuer(t *testing.T) {
	signer := NewTokenVerifier("s3cret", "issuer-a")
	verifier := NewTokenVerifier("s3cret", "issuer-b")

	token, _ := signer.Issue("agent-1", time.Hour)
	if verifier.Verify("Bearer " + token) {
		t.Fatal("expected verify to fail when the issuer claim doesn't match")
	}
}

func TestTokenVerifier_NilReceiverIsSafe(t *testing.T) {
	var tv *TokenVerifier
	if tv.Verify("Bearer whatever") {
		t.Fatal("expected a nil verifier to reject everything")
	}
	if _, err := tv.Issue("agent-1", time.Hour); err == nil {
		t.Fatal("expected a nil verifier to refuse issuing tokens")
	}
}
