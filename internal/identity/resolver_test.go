package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"novusai.org/internal/api"
	"novusai.org/internal/credential"
)

type fakeIdentityClient struct {
	ident api.Identity
	err   error
	calls int
}

func (f *fakeIdentityClient) GetIdentity(ctx context.Context) (api.Identity, error) {
	f.calls++
	if f.err != nil {
		return api.Identity{}, f.err
	}
	return f.ident, nil
}

func TestResolveWithoutCredentialSkipsNetwork(t *testing.T) {
	creds := credential.NewStore()
	client := &fakeIdentityClient{}
	r := NewResolver(creds, client)

	res := r.Resolve(context.Background())
	if res.Outcome != OutcomeUnauthenticated {
		t.Fatalf("unexpected outcome: %v", res.Outcome)
	}
	if client.calls != 0 {
		t.Fatalf("expected no network call, got %d", client.calls)
	}
}

func TestResolveSuccess(t *testing.T) {
	creds := credential.NewStore()
	creds.Set("tok-1")
	client := &fakeIdentityClient{ident: api.Identity{
		UserID: 7, Email: "a@x.com", Name: "Ada", Role: "employee",
		CompanyID: 3, CompanyName: "Acme",
	}}
	r := NewResolver(creds, client)

	res := r.Resolve(context.Background())
	if res.Outcome != OutcomeAuthenticated {
		t.Fatalf("unexpected outcome: %v", res.Outcome)
	}
	if res.Identity == nil || res.Identity.Email != "a@x.com" || res.Identity.Role != RoleMember {
		t.Fatalf("unexpected identity: %#v", res.Identity)
	}
	if res.Identity.OrganizationName != "Acme" || res.Identity.OrganizationID != "3" {
		t.Fatalf("organization not mapped: %#v", res.Identity)
	}
	if res.Token != "tok-1" {
		t.Fatalf("unexpected token: %q", res.Token)
	}
	if creds.Get() != "tok-1" {
		t.Fatal("credential must be retained on success")
	}
}

func TestResolveForbiddenRetainsCredential(t *testing.T) {
	creds := credential.NewStore()
	creds.Set("tok-1")
	client := &fakeIdentityClient{err: api.ErrForbidden}
	r := NewResolver(creds, client)

	res := r.Resolve(context.Background())
	if res.Outcome != OutcomePendingApproval {
		t.Fatalf("unexpected outcome: %v", res.Outcome)
	}
	if creds.Get() != "tok-1" {
		t.Fatal("credential must survive a pending-approval outcome")
	}
}

func TestResolveUnauthorizedClearsCredential(t *testing.T) {
	creds := credential.NewStore()
	creds.Set("tok-1")
	client := &fakeIdentityClient{err: api.ErrUnauthorized}
	r := NewResolver(creds, client)

	res := r.Resolve(context.Background())
	if res.Outcome != OutcomeUnauthenticated {
		t.Fatalf("unexpected outcome: %v", res.Outcome)
	}
	if creds.Get() != "" {
		t.Fatal("invalid credential must be cleared")
	}
	if !errors.Is(res.Err, api.ErrUnauthorized) {
		t.Fatalf("expected cause to be preserved, got %v", res.Err)
	}
}

func TestResolveNetworkErrorClearsCredential(t *testing.T) {
	creds := credential.NewStore()
	creds.Set("tok-1")
	client := &fakeIdentityClient{err: errors.New("connection refused")}
	r := NewResolver(creds, client)

	res := r.Resolve(context.Background())
	if res.Outcome != OutcomeUnauthenticated {
		t.Fatalf("unexpected outcome: %v", res.Outcome)
	}
	if creds.Get() != "" {
		t.Fatal("credential presumed invalid must be cleared")
	}
}

func TestResolveExpiredTokenSkipsNetwork(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "user-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("irrelevant"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	creds := credential.NewStore()
	creds.Set(token)
	client := &fakeIdentityClient{}
	r := NewResolver(creds, client)

	res := r.Resolve(context.Background())
	if res.Outcome != OutcomeUnauthenticated {
		t.Fatalf("unexpected outcome: %v", res.Outcome)
	}
	if !errors.Is(res.Err, ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired, got %v", res.Err)
	}
	if client.calls != 0 {
		t.Fatalf("expired token must not reach the network, got %d calls", client.calls)
	}
	if creds.Get() != "" {
		t.Fatal("expired credential must be cleared")
	}
}

func TestResolveDoesNotClearNewerCredential(t *testing.T) {
	creds := credential.NewStore()
	creds.Set("tok-1")
	client := &fakeIdentityClient{err: api.ErrUnauthorized}
	r := NewResolver(creds, client)

	// A login stored a fresh token while the resolve was in flight.
	swap := &swappingCreds{Store: creds, fresh: "tok-2"}
	res := NewResolver(swap, client).Resolve(context.Background())
	if res.Outcome != OutcomeUnauthenticated {
		t.Fatalf("unexpected outcome: %v", res.Outcome)
	}
	if creds.Get() != "tok-2" {
		t.Fatalf("newer credential was clobbered: %q", creds.Get())
	}
	_ = r
}

// swappingCreds simulates a concurrent login: the network round trip sees
// tok-1, but by clear time the store already holds a fresh token.
type swappingCreds struct {
	*credential.Store
	fresh string
	read  bool
}

func (s *swappingCreds) Get() string {
	if !s.read {
		s.read = true
		token := s.Store.Get()
		s.Store.Set(s.fresh)
		return token
	}
	return s.Store.Get()
}
