// Package session owns the overall auth state of one client session. The
// Manager is constructed explicitly with its collaborators injected; nothing
// here is a process-wide singleton.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"novusai.org/internal/audit"
	"novusai.org/internal/identity"
	"novusai.org/internal/obs"
	"novusai.org/internal/stream"
)

// Status is the session lifecycle state.
type Status int

const (
	// StatusBooting is the initial state before the first resolution.
	StatusBooting Status = iota
	StatusUnauthenticated
	StatusPendingApproval
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusBooting:
		return "booting"
	case StatusPendingApproval:
		return "pending_approval"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// ErrPendingApproval signals a login that succeeded against an account still
// awaiting approval, so the caller can present a distinct message instead of
// treating it as either success or failure.
var ErrPendingApproval = errors.New("session: account awaiting approval")

// Authenticator is the slice of the API surface used for login.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Resolver classifies the current credential into an identity outcome.
type Resolver interface {
	Resolve(ctx context.Context) identity.Resolution
}

// Credentials is the slice of the credential store the manager needs.
type Credentials interface {
	Get() string
	Set(token string)
	Clear()
}

// Manager is the auth state machine. Invariant: identity is non-nil exactly
// when status is StatusAuthenticated.
type Manager struct {
	mu       sync.Mutex
	status   Status
	identity *identity.Identity

	creds    Credentials
	resolver Resolver
	api      Authenticator
	bus      *stream.Bus
}

// Option configures Manager behavior.
type Option func(*Manager)

// WithBus publishes session transitions on the given event bus.
func WithBus(bus *stream.Bus) Option {
	return func(m *Manager) { m.bus = bus }
}

// NewManager creates a manager in StatusBooting.
func NewManager(creds Credentials, resolver Resolver, api Authenticator, opts ...Option) *Manager {
	m := &Manager{
		status:   StatusBooting,
		creds:    creds,
		resolver: resolver,
		api:      api,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Status returns the current session status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Identity returns a copy of the confirmed identity, if authenticated.
func (m *Manager) Identity() (identity.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return identity.Identity{}, false
	}
	return *m.identity, true
}

// Refresh re-runs the resolver against the current credential and returns the
// resulting status. Safe to call at boot and at any time after; when two
// refreshes race, the last resolution to arrive wins, and a resolution is
// discarded entirely if the credential changed while it was in flight.
func (m *Manager) Refresh(ctx context.Context) Status {
	res := m.resolver.Resolve(ctx)
	status := m.apply(res)
	_ = audit.LogEvent(ctx, "auth.refresh", map[string]any{"outcome": res.Outcome.String()})
	return status
}

// Login exchanges credentials for a token, stores it and immediately
// resolves the identity. Returns ErrPendingApproval when the account is not
// approved yet (the credential is retained). On login failure the state and
// the credential store are left untouched.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	token, err := m.api.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	m.creds.Set(token)

	res := m.resolver.Resolve(ctx)
	m.apply(res)

	switch res.Outcome {
	case identity.OutcomeAuthenticated:
		_ = audit.LogEvent(audit.WithActor(ctx, email), "auth.login", map[string]any{"outcome": "authenticated"})
		return nil
	case identity.OutcomePendingApproval:
		_ = audit.LogEvent(audit.WithActor(ctx, email), "auth.login", map[string]any{"outcome": "pending_approval"})
		return ErrPendingApproval
	default:
		if res.Err != nil {
			return fmt.Errorf("resolve identity: %w", res.Err)
		}
		return errors.New("login: no identity resolved")
	}
}

// Logout clears the credential and identity and forces Unauthenticated.
// Purely local; it cannot fail.
func (m *Manager) Logout(ctx context.Context) {
	m.creds.Clear()

	m.mu.Lock()
	m.identity = nil
	m.transitionLocked(StatusUnauthenticated)
	m.mu.Unlock()

	_ = audit.LogEvent(ctx, "auth.logout", nil)
}

// apply installs a resolution, unless the credential it was resolved against
// no longer matches the store's current value (e.g. a logout or a newer
// login happened while the resolution was in flight).
func (m *Manager) apply(res identity.Resolution) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.creds.Get() != res.Token {
		return m.status
	}

	switch res.Outcome {
	case identity.OutcomeAuthenticated:
		snapshot := *res.Identity
		m.identity = &snapshot
		m.transitionLocked(StatusAuthenticated)
	case identity.OutcomePendingApproval:
		m.identity = nil
		m.transitionLocked(StatusPendingApproval)
	default:
		m.identity = nil
		m.transitionLocked(StatusUnauthenticated)
	}
	return m.status
}

func (m *Manager) transitionLocked(to Status) {
	from := m.status
	if from == to {
		return
	}
	m.status = to
	obs.CountSessionTransition(from.String(), to.String())
	m.bus.Publish(stream.Event{Kind: stream.KindSession, Detail: to.String()})
}
