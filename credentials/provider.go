package credentials

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"siramm-project/web-service/models"
)

// Provider hands out the bearer token used for remote store calls.
type Provider interface {
	Get(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Claims are the fields read from a JWT bearer token. The signature is not
// checked here; the remote API does that. We only look at expiry and identity.
type Claims struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Inspect decodes token claims without verifying the signature. ok is false
// for opaque (non-JWT) tokens.
func Inspect(token string) (*Claims, bool) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// Expired reports whether token is a JWT whose exp claim is at or before now.
// Opaque tokens never expire locally.
func Expired(token string, now time.Time) bool {
	claims, ok := Inspect(token)
	if !ok || claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(now)
}

// Static holds a single token, e.g. one session's token or the CLI's.
type Static struct {
	mu    sync.Mutex
	token string
	now   func() time.Time
}

func NewStatic(token string) *Static {
	return &Static{token: strings.TrimSpace(strings.TrimPrefix(token, "Bearer ")), now: time.Now}
}

// Get returns models.ErrAuthenticationRequired when no token is held or the
// held token has expired. An expired token is dropped.
func (s *Static) Get(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == "" {
		return "", models.ErrAuthenticationRequired
	}
	if Expired(s.token, s.now()) {
		s.token = ""
		return "", models.ErrAuthenticationRequired
	}
	return s.token, nil
}

func (s *Static) Clear(_ context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}
