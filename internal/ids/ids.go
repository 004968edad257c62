package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewLocal returns a lexicographically sortable identifier used to reconcile
// messages inside the in-memory timeline. Local ids never leave the client.
func NewLocal() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewRequest returns a correlation identifier attached to outgoing API calls.
func NewRequest() string {
	return uuid.NewString()
}
