// Package store provides storage backends for YonkeBot.
//
// This file implements a PostgreSQL-backed store for users and listings.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "embed"

	"github.com/BTreeMap/YonkeBot/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// FindOrCreateUser returns the user for phone, creating it on first contact.
func (s *PostgresStore) FindOrCreateUser(ctx context.Context, phone string) (*models.User, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, fmt.Errorf("find or create user: %w", models.ErrEmptyInput)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (phone) VALUES ($1) ON CONFLICT (phone) DO NOTHING`, phone)
	if err != nil {
		slog.Error("PostgresStore FindOrCreateUser insert failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to insert user %s: %w", phone, err)
	}
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone))
	if err != nil {
		slog.Error("PostgresStore FindOrCreateUser select failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to load user %s: %w", phone, err)
	}
	slog.Debug("PostgresStore FindOrCreateUser succeeded", "userID", u.ID, "hasBusiness", u.HasBusiness())
	return u, nil
}

// UpdateBusinessData commits the business registration for userID.
func (s *PostgresStore) UpdateBusinessData(ctx context.Context, userID int64, data models.BusinessData) error {
	if err := data.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET business_name = $1, city = $2, municipality = $3, neighborhood = $4 WHERE id = $5`,
		strings.TrimSpace(data.Name), strings.TrimSpace(data.City),
		strings.TrimSpace(data.Municipality), strings.TrimSpace(data.Neighborhood), userID)
	if err != nil {
		slog.Error("PostgresStore UpdateBusinessData failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to update business data for user %d: %w", userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update business data for user %d: %w", userID, models.ErrUserNotFound)
	}
	slog.Debug("PostgresStore UpdateBusinessData succeeded", "userID", userID)
	return nil
}

// CreateListings inserts all listings in one transaction.
func (s *PostgresStore) CreateListings(ctx context.Context, listings []models.Listing) ([]models.Listing, error) {
	if len(listings) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("PostgresStore CreateListings begin failed", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	created := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = $1`, l.SellerID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("create listings for seller %d: %w", l.SellerID, models.ErrUserNotFound)
			}
			return nil, fmt.Errorf("failed to check seller %d: %w", l.SellerID, err)
		}
		attrs, err := marshalAttributes(l.Attributes)
		if err != nil {
			return nil, err
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO listings (seller_id, title, description, price, attributes, search_text)
			 VALUES ($1, $2, $3, $4, $5::jsonb, $6) RETURNING id, created_at`,
			l.SellerID, l.Title, l.Description, nilIfZero(l.Price), attrs, searchText(l)).Scan(&l.ID, &l.CreatedAt)
		if err != nil {
			slog.Error("PostgresStore CreateListings insert failed", "error", err, "sellerID", l.SellerID)
			return nil, fmt.Errorf("failed to insert listing: %w", err)
		}
		created = append(created, l)
	}
	if err := tx.Commit(); err != nil {
		slog.Error("PostgresStore CreateListings commit failed", "error", err)
		return nil, fmt.Errorf("failed to commit listings: %w", err)
	}
	slog.Debug("PostgresStore CreateListings succeeded", "count", len(created))
	return created, nil
}

// SearchListings runs a full-text prefix query over the folded search text.
func (s *PostgresStore) SearchListings(ctx context.Context, tokens []string, limit int) ([]models.SearchResult, error) {
	q := tsQuery(foldTokens(tokens))
	if q == "" {
		return nil, nil
	}
	query := `SELECT l.id, u.business_name, l.description, l.price, u.phone
		FROM listings l JOIN users u ON u.id = l.seller_id
		WHERE to_tsvector('simple', l.search_text) @@ to_tsquery('simple', $1)
		ORDER BY l.created_at DESC, l.id DESC`
	args := []interface{}{q}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("PostgresStore SearchListings query failed", "error", err, "query", q)
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		r, err := scanSearchResult(rows)
		if err != nil {
			slog.Error("PostgresStore SearchListings scan failed", "error", err)
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore SearchListings rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate search rows: %w", err)
	}
	slog.Debug("PostgresStore SearchListings succeeded", "query", q, "count", len(results))
	return results, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
