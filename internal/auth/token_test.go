package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("secret")
	now := time.Now()
	issued, err := IssueToken(secret, Claims{
		Scope: ScopeAdmin,
		JTI:   "jti-1",
		Iat:   now.Unix(),
		Exp:   now.Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	claims, err := ParseToken(secret, issued, now)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Scope != ScopeAdmin || claims.JTI != "jti-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	secret := []byte("secret")
	now := time.Now()
	issued, err := IssueToken(secret, Claims{
		Scope: ScopeAdmin,
		JTI:   "jti-1",
		Exp:   now.Add(-time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	_, err = ParseToken(secret, issued, now)
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseTokenRejectsTamperedPayload(t *testing.T) {
	secret := []byte("secret")
	now := time.Now()
	issued, err := IssueToken(secret, Claims{Scope: ScopeAdmin, JTI: "jti-1", Exp: now.Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	forged, err := IssueToken([]byte("other"), Claims{Scope: ScopeAdmin, JTI: "jti-2", Exp: now.Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	mixed := strings.Split(forged, ".")[0] + "." + strings.Split(issued, ".")[1]
	if _, err := ParseToken(secret, mixed, now); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTokenRejectsLegacyPlainMarker(t *testing.T) {
	if _, err := ParseToken([]byte("secret"), "true", time.Now()); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
