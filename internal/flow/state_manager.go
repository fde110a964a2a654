// Package flow provides concrete implementations of session management.
package flow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/YonkeBot/internal/models"
)

// SessionManager implements SessionStore in process memory. Sessions do not
// survive a restart.
type SessionManager struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	now     func() time.Time
}

// sessionEntry is refcounted by lease holders and waiters so it is dropped
// from the map only when nobody needs it.
type sessionEntry struct {
	sem     chan struct{}
	refs    int
	session *models.Session
}

// NewSessionManager creates an empty SessionManager.
func NewSessionManager() *SessionManager {
	slog.Debug("Creating SessionManager")
	return &SessionManager{
		entries: make(map[string]*sessionEntry),
		now:     time.Now,
	}
}

// Acquire blocks until the caller holds sender's lease or ctx is done.
func (sm *SessionManager) Acquire(ctx context.Context, sender string) (SessionLease, error) {
	sm.mu.Lock()
	e, ok := sm.entries[sender]
	if !ok {
		e = &sessionEntry{sem: make(chan struct{}, 1)}
		sm.entries[sender] = e
	}
	e.refs++
	sm.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		slog.Debug("SessionManager Acquire succeeded", "sender", sender)
		return &Lease{sm: sm, sender: sender, entry: e}, nil
	case <-ctx.Done():
		sm.mu.Lock()
		sm.dropRefLocked(sender, e)
		sm.mu.Unlock()
		slog.Warn("SessionManager Acquire cancelled", "sender", sender, "error", ctx.Err())
		return nil, ctx.Err()
	}
}

// ExpireIdle removes sessions whose last update is older than maxIdle. Sessions
// currently leased are skipped.
func (sm *SessionManager) ExpireIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	cutoff := sm.now().Add(-maxIdle)
	expired := 0

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for sender, e := range sm.entries {
		// refs counts holders and waiters alike.
		if e.refs > 0 || e.session == nil || e.session.UpdatedAt.After(cutoff) {
			continue
		}
		delete(sm.entries, sender)
		expired++
		slog.Info("SessionManager ExpireIdle removed session", "sender", sender)
	}
	return expired
}

// Len returns the number of active sessions.
func (sm *SessionManager) Len() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	n := 0
	for _, e := range sm.entries {
		if e.session != nil {
			n++
		}
	}
	return n
}

func (sm *SessionManager) dropRefLocked(sender string, e *sessionEntry) {
	e.refs--
	if e.refs == 0 && e.session == nil {
		delete(sm.entries, sender)
	}
}

// Lease is the SessionManager's SessionLease.
type Lease struct {
	sm       *SessionManager
	sender   string
	entry    *sessionEntry
	released bool
}

// Session returns a copy of the current session, if any.
func (l *Lease) Session() (models.Session, bool) {
	l.sm.mu.Lock()
	defer l.sm.mu.Unlock()
	if l.entry.session == nil {
		return models.Session{}, false
	}
	return l.entry.session.Clone(), true
}

// Update replaces the session and stamps UpdatedAt.
func (l *Lease) Update(s models.Session) {
	c := s.Clone()
	c.Sender = l.sender
	c.UpdatedAt = l.sm.now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = c.UpdatedAt
	}
	l.sm.mu.Lock()
	l.entry.session = &c
	l.sm.mu.Unlock()
	slog.Debug("SessionManager Update", "sender", l.sender, "step", c.Step)
}

// Discard deletes the session.
func (l *Lease) Discard() {
	l.sm.mu.Lock()
	l.entry.session = nil
	l.sm.mu.Unlock()
	slog.Debug("SessionManager Discard", "sender", l.sender)
}

// Release gives up the lease.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true
	<-l.entry.sem
	l.sm.mu.Lock()
	l.sm.dropRefLocked(l.sender, l.entry)
	l.sm.mu.Unlock()
}
