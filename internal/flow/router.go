package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/BTreeMap/YonkeBot/internal/extract"
	"github.com/BTreeMap/YonkeBot/internal/intent"
	"github.com/BTreeMap/YonkeBot/internal/models"
	"github.com/BTreeMap/YonkeBot/internal/render"
	"github.com/BTreeMap/YonkeBot/internal/search"
	"github.com/BTreeMap/YonkeBot/internal/store"
)

// Router is the message-handling boundary: every inbound message gets exactly
// one reply and no failure escapes it.
type Router struct {
	sessions SessionStore
	machine  *Machine
	users    store.UserStore
	listings store.ListingStore
	matcher  *search.Matcher
	now      func() time.Time
}

// NewRouter wires a Router over st and sessions.
func NewRouter(st store.Store, sessions SessionStore) *Router {
	return &Router{
		sessions: sessions,
		machine:  NewMachine(st, st),
		users:    st,
		listings: st,
		matcher:  search.NewMatcher(st),
		now:      time.Now,
	}
}

// Handle processes one message from sender and returns the reply text.
func (r *Router) Handle(ctx context.Context, sender, text string) (reply string) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Router Handle panic recovered", "sender", sender, "panic", p, "stack", string(debug.Stack()))
			reply = render.GenericError
		}
	}()

	lease, err := r.sessions.Acquire(ctx, sender)
	if err != nil {
		slog.Error("Router Handle acquire failed", "error", err, "sender", sender)
		return render.GenericError
	}
	defer lease.Release()

	if _, ok := lease.Session(); ok {
		out, err := r.machine.Step(ctx, lease, text)
		if err != nil {
			return render.GenericError
		}
		return out
	}

	switch intent.Classify(text) {
	case intent.Sell:
		slog.Debug("Router Handle sell", "sender", sender)
		reply, err = r.sell(ctx, lease, sender, text)
	case intent.Search:
		slog.Debug("Router Handle search", "sender", sender)
		reply, err = r.search(ctx, text)
	default:
		slog.Debug("Router Handle unknown intent", "sender", sender)
		return render.Help
	}
	if err != nil {
		slog.Error("Router Handle failed", "error", err, "sender", sender)
		return render.GenericError
	}
	return reply
}

func (r *Router) sell(ctx context.Context, lease SessionLease, sender, text string) (string, error) {
	user, err := r.users.FindOrCreateUser(ctx, sender)
	if err != nil {
		return "", fmt.Errorf("find or create user: %w", err)
	}
	if !user.HasBusiness() {
		r.open(lease, sender, models.StepAwaitingBusinessName, user.ID)
		return render.AskBusinessName, nil
	}

	drafts := extract.Extract(text)
	if !extract.AllComplete(drafts) {
		slog.Info("Router sell falling back to guided listing", "sender", sender, "segments", len(drafts))
		r.open(lease, sender, models.StepAwaitingItemTitle, user.ID)
		return render.AskItemTitle, nil
	}
	listings := make([]models.Listing, 0, len(drafts))
	for _, d := range drafts {
		l, err := d.ToListing(user.ID)
		if err != nil {
			return "", err
		}
		listings = append(listings, l)
	}
	created, err := r.listings.CreateListings(ctx, listings)
	if err != nil {
		return "", fmt.Errorf("create listings: %w", err)
	}
	slog.Info("Router sell created listings", "sender", sender, "count", len(created))
	return render.ListingsCreated(created), nil
}

func (r *Router) search(ctx context.Context, text string) (string, error) {
	terms := intent.StripSearchTrigger(text)
	results, err := r.matcher.Search(ctx, terms)
	if errors.Is(err, search.ErrEmptyQuery) {
		return render.EmptyQuery, nil
	}
	if err != nil {
		return "", err
	}
	return render.SearchResults(terms, results), nil
}

func (r *Router) open(lease SessionLease, sender string, step models.StepTag, userID int64) {
	s := models.NewSession(sender, step, r.now())
	s.Set(models.DataKeyUserID, strconv.FormatInt(userID, 10))
	lease.Update(s)
	slog.Info("Router opened session", "sender", sender, "flow", s.Flow, "step", step)
}

// Search runs a buyer query outside of any conversation.
func (r *Router) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	return r.matcher.Search(ctx, query)
}
