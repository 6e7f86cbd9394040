// Package authpw checks the shared admin secret and manages the session
// markers handed out on success.
package authpw

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tresde/api/internal/auth"
	"tresde/api/internal/session"
)

var (
	ErrNotConfigured = errors.New("admin secret not configured")
	ErrWrongSecret   = errors.New("wrong admin secret")
	ErrRevoked       = errors.New("session revoked")
)

// Options configures the admin credential check. PasswordHash, when set,
// wins over Password.
type Options struct {
	Password      string
	PasswordHash  string
	SigningSecret []byte
	TTL           time.Duration
	Revoker       session.Revoker
}

type Service struct {
	password string
	hash     []byte
	secret   []byte
	ttl      time.Duration
	revoker  session.Revoker
	now      func() time.Time
}

func NewService(opts Options) *Service {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	revoker := opts.Revoker
	if revoker == nil {
		revoker = session.NewMemoryStore()
	}
	s := &Service{
		password: opts.Password,
		secret:   opts.SigningSecret,
		ttl:      ttl,
		revoker:  revoker,
		now:      time.Now,
	}
	if opts.PasswordHash != "" {
		s.hash = []byte(opts.PasswordHash)
	}
	return s
}

// Configured reports whether any admin secret is set.
func (s *Service) Configured() bool {
	return s.password != "" || len(s.hash) > 0
}

// TTL is the lifetime of a marker issued by SignIn.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// SignIn compares password with the admin secret and, on a match, issues a
// fresh marker.
func (s *Service) SignIn(_ context.Context, password string) (string, auth.Claims, error) {
	if !s.Configured() {
		return "", auth.Claims{}, ErrNotConfigured
	}
	if !s.matches(password) {
		return "", auth.Claims{}, ErrWrongSecret
	}

	now := s.now()
	claims := auth.Claims{
		Scope: auth.ScopeAdmin,
		JTI:   uuid.NewString(),
		Iat:   now.Unix(),
		Exp:   now.Add(s.ttl).Unix(),
	}
	token, err := auth.IssueToken(s.secret, claims)
	if err != nil {
		return "", auth.Claims{}, fmt.Errorf("issue session: %w", err)
	}
	return token, claims, nil
}

// Verify accepts a marker that is signed, unexpired and not logged out.
func (s *Service) Verify(ctx context.Context, token string) (auth.Claims, error) {
	claims, err := auth.ParseToken(s.secret, token, s.now())
	if err != nil {
		return auth.Claims{}, err
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.JTI)
	if err != nil {
		return auth.Claims{}, err
	}
	if revoked {
		return auth.Claims{}, ErrRevoked
	}
	return claims, nil
}

// SignOut revokes the marker if it is still valid. An invalid or expired
// marker needs no revocation.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(s.secret, token, s.now())
	if err != nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.JTI, time.Unix(claims.Exp, 0))
}

func (s *Service) matches(password string) bool {
	if password == "" {
		return false
	}
	if len(s.hash) > 0 {
		return bcrypt.CompareHashAndPassword(s.hash, []byte(password)) == nil
	}
	// Hashing first keeps the comparison constant time regardless of length.
	got := sha256.Sum256([]byte(password))
	want := sha256.Sum256([]byte(s.password))
	return subtle.ConstantTimeCompare(got[:], want[:]) == 1
}

// HashPassword produces a value suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
