package gateway

import (
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenVerifier validates the bearer token a DIRECT-TLS client presents
// on its Authorization header, grounded on the pack's HMAC-SHA256 JWT
// pattern (a generic agent/gateway pairing token, not a platform SDK).
// Only a DIRECT connection can ever become Authenticated (§4.C, §9
// edge case 3): tunneled and local connections are never trusted by a
// bearer token alone.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	if secret == "" {
		return nil
	}
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

var errInvalidBearer = errors.New("gateway: invalid bearer token")

// Verify parses the raw Authorization header value and reports whether
// the token is a validly-signed, unexpired token for this issuer.
func (v *TokenVerifier) Verify(authHeader string) bool {
	if v == nil || authHeader == "" {
		return false
	}
	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenStr == authHeader {
		return false
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errInvalidBearer
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	if v.issuer != "" && claims["iss"] != v.issuer {
		return false
	}
	return true
}

// Issue mints a bearer token for subject, valid for ttl. Used by
// operator tooling (the pairing flow) to hand a DIRECT client its token
// out of band; the gateway itself never issues tokens over the wire.
func (v *TokenVerifier) Issue(subject string, ttl time.Duration) (string, error) {
	if v == nil {
		return "", errors.New("gateway: no token verifier configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": v.issuer,
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
