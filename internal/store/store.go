// Package store provides storage backends for YonkeBot.
//
// It includes an in-memory store and SQL stores (SQLite, PostgreSQL) for users
// and their listings.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/YonkeBot/internal/models"
	"github.com/BTreeMap/YonkeBot/internal/util"
)

// UserStore persists chat participants and their business registration.
type UserStore interface {
	// FindOrCreateUser returns the user for phone, creating it on first contact.
	FindOrCreateUser(ctx context.Context, phone string) (*models.User, error)
	// UpdateBusinessData commits the business registration for userID.
	UpdateBusinessData(ctx context.Context, userID int64, data models.BusinessData) error
}

// ListingStore persists listings and answers searches over them.
type ListingStore interface {
	// CreateListings inserts all listings or none. The returned listings carry
	// their assigned IDs and creation times.
	CreateListings(ctx context.Context, listings []models.Listing) ([]models.Listing, error)
	// SearchListings returns listings whose folded search text contains every
	// token, newest first, at most limit rows.
	SearchListings(ctx context.Context, tokens []string, limit int) ([]models.SearchResult, error)
}

// Store is the storage port used by the bot.
type Store interface {
	UserStore
	ListingStore
	Close() error
}

// Opts holds configuration options for SQL stores.
type Opts struct {
	DSN string // data source name
}

// Option defines a configuration option for stores.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// Driver names returned by DetectDSNType.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DetectDSNType reports which SQL driver a DSN belongs to. URLs with a
// postgres scheme and key/value strings with a host are PostgreSQL; anything
// else is treated as an SQLite file path.
func DetectDSNType(dsn string) string {
	d := strings.TrimSpace(dsn)
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") {
		return DriverPostgres
	}
	if strings.Contains(d, "host=") || strings.Contains(d, "dbname=") {
		return DriverPostgres
	}
	return DriverSQLite
}

// Open returns the store for dsn. An empty DSN yields an in-memory store.
func Open(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		slog.Info("No database DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	}
	switch DetectDSNType(dsn) {
	case DriverPostgres:
		slog.Info("Using PostgreSQL store")
		return NewPostgresStore(WithPostgresDSN(dsn))
	default:
		slog.Info("Using SQLite store", "path", dsn)
		return NewSQLiteStore(WithSQLiteDSN(dsn))
	}
}

// InMemoryStore is a Store held in process memory. Its contents are lost on restart.
type InMemoryStore struct {
	mu         sync.RWMutex
	users      map[int64]*models.User
	usersByPhn map[string]int64
	listings   []storedListing
	nextUserID int64
	nextListID int64
	now        func() time.Time
}

type storedListing struct {
	listing    models.Listing
	searchText string
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:      make(map[int64]*models.User),
		usersByPhn: make(map[string]int64),
		now:        time.Now,
	}
}

// FindOrCreateUser returns the user for phone, creating it on first contact.
func (s *InMemoryStore) FindOrCreateUser(ctx context.Context, phone string) (*models.User, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, fmt.Errorf("find or create user: %w", models.ErrEmptyInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.usersByPhn[phone]; ok {
		u := *s.users[id]
		return &u, nil
	}
	s.nextUserID++
	u := &models.User{ID: s.nextUserID, Phone: phone, CreatedAt: s.now()}
	s.users[u.ID] = u
	s.usersByPhn[phone] = u.ID
	slog.Debug("InMemoryStore FindOrCreateUser created user", "userID", u.ID)
	cp := *u
	return &cp, nil
}

// UpdateBusinessData commits the business registration for userID.
func (s *InMemoryStore) UpdateBusinessData(ctx context.Context, userID int64, data models.BusinessData) error {
	if err := data.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("update business data for user %d: %w", userID, models.ErrUserNotFound)
	}
	u.BusinessName = strings.TrimSpace(data.Name)
	u.City = strings.TrimSpace(data.City)
	u.Municipality = strings.TrimSpace(data.Municipality)
	u.Neighborhood = strings.TrimSpace(data.Neighborhood)
	return nil
}

// CreateListings inserts all listings or none.
func (s *InMemoryStore) CreateListings(ctx context.Context, listings []models.Listing) ([]models.Listing, error) {
	if len(listings) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range listings {
		if _, ok := s.users[l.SellerID]; !ok {
			return nil, fmt.Errorf("create listings for seller %d: %w", l.SellerID, models.ErrUserNotFound)
		}
	}
	created := make([]models.Listing, 0, len(listings))
	now := s.now()
	for _, l := range listings {
		s.nextListID++
		l.ID = s.nextListID
		l.CreatedAt = now
		s.listings = append(s.listings, storedListing{listing: l, searchText: searchText(l)})
		created = append(created, l)
	}
	return created, nil
}

// SearchListings returns listings containing every token, newest first.
func (s *InMemoryStore) SearchListings(ctx context.Context, tokens []string, limit int) ([]models.SearchResult, error) {
	folded := foldTokens(tokens)
	if len(folded) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []models.Listing
	for _, sl := range s.listings {
		if containsAll(sl.searchText, folded) {
			matches = append(matches, sl.listing)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ID > matches[j].ID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]models.SearchResult, 0, len(matches))
	for _, l := range matches {
		seller := s.users[l.SellerID]
		results = append(results, models.SearchResult{
			ListingID:   l.ID,
			SellerName:  seller.BusinessName,
			Description: l.Description,
			Price:       l.Price,
			Contact:     seller.Phone,
		})
	}
	return results, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

func containsAll(text string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(text, tok) {
			return false
		}
	}
	return true
}

// searchText is the folded text every adapter matches tokens against.
func searchText(l models.Listing) string {
	return util.CollapseSpaces(util.Fold(l.Title + " " + l.Description + " " + l.Attributes.Vehicle))
}

// foldTokens normalizes caller tokens the way search.Tokenize does, so a
// token like "f-150" becomes "f" and "150" in every adapter.
func foldTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, util.Words(tok)...)
	}
	return out
}
