package identity

import (
	"context"
	"errors"
	"time"

	"novusai.org/internal/api"
	"novusai.org/internal/credential"
)

// Outcome classifies one resolution attempt.
type Outcome int

const (
	OutcomeUnauthenticated Outcome = iota
	OutcomePendingApproval
	OutcomeAuthenticated
)

func (o Outcome) String() string {
	switch o {
	case OutcomePendingApproval:
		return "pending_approval"
	case OutcomeAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Resolution is the result of one who-am-I round trip. Token holds the
// credential value this resolution is valid against as the resolver left it:
// the retained token for authenticated and pending outcomes, "" when no
// credential remains. Err carries the underlying cause when the outcome is a
// downgrade; it is context for logging, never re-surfaced raw.
type Resolution struct {
	Outcome  Outcome
	Identity *Identity
	Token    string
	Err      error
}

// Client is the slice of the API surface the resolver needs.
type Client interface {
	GetIdentity(ctx context.Context) (api.Identity, error)
}

// Credentials is the slice of the credential store the resolver needs.
type Credentials interface {
	Get() string
	CompareAndClear(old string) bool
}

// Resolver drives the who-am-I endpoint and classifies the response.
type Resolver struct {
	creds  Credentials
	client Client
}

// NewResolver wires a resolver to its collaborators.
func NewResolver(creds Credentials, client Client) *Resolver {
	return &Resolver{creds: creds, client: client}
}

// ErrCredentialExpired marks a token whose expiry claim already passed.
var ErrCredentialExpired = errors.New("identity: credential expired")

// Resolve classifies the current credential:
//
//   - no credential present: unauthenticated, no network call
//   - expiry claim already passed: unauthenticated, no network call, the
//     credential is cleared
//   - forbidden: pending approval, credential retained so the user is not
//     forced to re-enter it while waiting
//   - success: authenticated with a fresh identity snapshot
//   - anything else: unauthenticated, the credential is presumed invalid and
//     cleared (unless a newer one was stored meanwhile)
func (r *Resolver) Resolve(ctx context.Context) Resolution {
	token := r.creds.Get()
	if token == "" {
		return Resolution{Outcome: OutcomeUnauthenticated}
	}

	if info, ok := credential.Peek(token); ok && !info.ExpiresAt.IsZero() && time.Now().After(info.ExpiresAt) {
		r.creds.CompareAndClear(token)
		return Resolution{Outcome: OutcomeUnauthenticated, Err: ErrCredentialExpired}
	}

	wire, err := r.client.GetIdentity(ctx)
	if err != nil {
		if errors.Is(err, api.ErrForbidden) {
			return Resolution{Outcome: OutcomePendingApproval, Token: token, Err: err}
		}
		r.creds.CompareAndClear(token)
		return Resolution{Outcome: OutcomeUnauthenticated, Err: err}
	}

	ident := FromWire(wire)
	return Resolution{Outcome: OutcomeAuthenticated, Identity: &ident, Token: token}
}
