// Package credential holds the bearer token for the lifetime of one client
// session. Nothing is persisted: the token lives exactly as long as the
// process, mirroring session-scoped browser storage.
package credential

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Store owns the single credential. Absence of a credential is a valid state
// represented by the empty string, not an error.
type Store struct {
	mu    sync.RWMutex
	token string
}

// NewStore creates an empty credential store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the stored credential.
func (s *Store) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
}

// Get returns the stored credential, or "" when none is present.
func (s *Store) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Clear removes the stored credential.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// CompareAndClear removes the credential only if it still equals old.
// A resolver that decided a token is invalid must not wipe a newer token
// stored by a login that raced with it.
func (s *Store) CompareAndClear(old string) bool {
	if old == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != old {
		return false
	}
	s.token = ""
	return true
}

// TokenInfo is the unverified claim snapshot of a JWT credential.
type TokenInfo struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Peek decodes the claims of a JWT credential without verifying its
// signature; the server remains the authority on validity. Returns false for
// opaque or malformed tokens.
func Peek(token string) (TokenInfo, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenInfo{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, false
	}
	info := TokenInfo{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, true
}
