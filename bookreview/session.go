package bookreview

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session holds the identity of the authenticated user: the bearer token
// issued at login and the resolved profile snapshot. Ownership checks and
// projections consult it; until the profile resolves, UserID reports 0 and
// every ownership predicate answers false.
//
// The session persists to a small JSON file between CLI invocations.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`

	path string
}

// NewSession returns a session backed by the given file path. The file is
// not read until Load.
func NewSession(path string) *Session {
	return &Session{path: path}
}

// UserID returns the authenticated user's id, or 0 while unresolved.
func (s *Session) UserID() int64 {
	if s == nil || s.User == nil {
		return 0
	}
	return s.User.ID
}

// LoggedIn reports whether a token is present.
func (s *Session) LoggedIn() bool { return s != nil && s.Token != "" }

// Subject returns the token's subject claim without verifying the
// signature; verification is the server's job, this is display and
// pre-flight only.
func (s *Session) Subject() (string, error) {
	claims, err := s.claims()
	if err != nil {
		return "", err
	}
	return claims.GetSubject()
}

// ExpiresAt returns the token expiry, or the zero time when the token
// carries no exp claim.
func (s *Session) ExpiresAt() (time.Time, error) {
	claims, err := s.claims()
	if err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

// TokenExpired reports whether the token is present but already past its
// exp claim. A token without an expiry never reports expired.
func (s *Session) TokenExpired() bool {
	if !s.LoggedIn() {
		return false
	}
	exp, err := s.ExpiresAt()
	if err != nil || exp.IsZero() {
		return false
	}
	return time.Now().After(exp)
}

func (s *Session) claims() (jwt.MapClaims, error) {
	if !s.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

// Load restores the session from its file. A missing file leaves the
// session empty and is not an error.
func (s *Session) Load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read session file: %w", err)
	}
	if err := json.Unmarshal(b, s); err != nil {
		return fmt.Errorf("decode session file: %w", err)
	}
	return nil
}

// Save writes the session to its file, creating the directory on first use.
// The file holds a credential, so it is owner-only.
func (s *Session) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Clear forgets the token and profile and removes the session file.
func (s *Session) Clear() error {
	s.Token = ""
	s.User = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
