// Package flow routes inbound chat messages and drives the multi-turn
// registration conversations.
package flow

import (
	"context"
	"time"

	"github.com/BTreeMap/YonkeBot/internal/models"
)

// SessionLease is exclusive access to one sender's session for the duration of
// a single inbound message.
type SessionLease interface {
	// Session returns a copy of the current session, if any.
	Session() (models.Session, bool)
	// Update replaces the session.
	Update(s models.Session)
	// Discard deletes the session.
	Discard()
	// Release gives up the lease. It is safe to call more than once.
	Release()
}

// SessionStore hands out per-sender leases. Different senders may hold leases
// concurrently; one sender holds at most one.
type SessionStore interface {
	Acquire(ctx context.Context, sender string) (SessionLease, error)
	// ExpireIdle removes unleased sessions idle for longer than maxIdle.
	ExpireIdle(maxIdle time.Duration) int
}
