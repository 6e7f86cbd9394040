// Package auth encodes the admin session marker as a signed, expiring token.
//
// A marker is base64url(claims JSON) "." base64url(HMAC-SHA256). It carries no
// user identity: the only thing it proves is that the holder passed the admin
// password check before Exp.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ScopeAdmin is the only scope a session marker can carry.
const ScopeAdmin = "admin"

type Claims struct {
	Scope string `json:"scope"`
	JTI   string `json:"jti"`
	Iat   int64  `json:"iat"`
	Exp   int64  `json:"exp"`
}

var (
	ErrInvalidToken = errors.New("session marker is not valid")
	ErrExpiredToken = errors.New("session marker has expired")
)

var b64 = base64.RawURLEncoding

func IssueToken(secret []byte, claims Claims) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("session signing secret is empty")
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode session claims: %w", err)
	}
	body := b64.EncodeToString(raw)
	return body + "." + b64.EncodeToString(mac(secret, body)), nil
}

// ParseToken verifies the signature and expiry of token at now.
func ParseToken(secret []byte, token string, now time.Time) (Claims, error) {
	var claims Claims
	body, sig, ok := strings.Cut(token, ".")
	if !ok || len(secret) == 0 || strings.Contains(sig, ".") {
		return claims, ErrInvalidToken
	}
	got, err := b64.DecodeString(sig)
	if err != nil || !hmac.Equal(got, mac(secret, body)) {
		return claims, ErrInvalidToken
	}
	raw, err := b64.DecodeString(body)
	if err != nil || json.Unmarshal(raw, &claims) != nil {
		return Claims{}, ErrInvalidToken
	}
	switch {
	case claims.Scope != ScopeAdmin, claims.JTI == "", claims.Exp == 0:
		return Claims{}, ErrInvalidToken
	case !now.Before(time.Unix(claims.Exp, 0)):
		return Claims{}, ErrExpiredToken
	}
	return claims, nil
}

func mac(secret []byte, body string) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(body))
	return h.Sum(nil)
}
