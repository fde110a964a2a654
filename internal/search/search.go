// Package search turns free-form buyer queries into listing lookups.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/YonkeBot/internal/models"
	"github.com/BTreeMap/YonkeBot/internal/util"
)

// DefaultSearchLimit caps the number of results returned to a buyer.
const DefaultSearchLimit = 10

// ErrEmptyQuery is returned when a query has no searchable tokens.
var ErrEmptyQuery = errors.New("search query is empty")

// Searcher is the storage capability the matcher needs.
type Searcher interface {
	SearchListings(ctx context.Context, tokens []string, limit int) ([]models.SearchResult, error)
}

// Tokenize folds query and splits it into letter/digit runs. Punctuation
// never reaches storage, so every adapter sees the same tokens.
func Tokenize(query string) []string {
	return util.Words(query)
}

// Matcher answers conjunctive searches: a listing matches only when every
// query token is contained in its searchable text.
type Matcher struct {
	store Searcher
	limit int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLimit overrides DefaultSearchLimit.
func WithLimit(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.limit = n
		}
	}
}

// NewMatcher creates a Matcher backed by store.
func NewMatcher(store Searcher, opts ...Option) *Matcher {
	m := &Matcher{store: store, limit: DefaultSearchLimit}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Search returns the listings matching every token of query. An empty query
// returns ErrEmptyQuery without touching storage; zero matches is not an error.
func (m *Matcher) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, ErrEmptyQuery
	}
	results, err := m.store.SearchListings(ctx, tokens, m.limit)
	if err != nil {
		slog.Error("Matcher Search failed", "error", err, "tokens", len(tokens))
		return nil, fmt.Errorf("search listings: %w", err)
	}
	slog.Debug("Matcher Search succeeded", "tokens", len(tokens), "count", len(results))
	return results, nil
}
