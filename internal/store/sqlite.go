// Package store provides storage backends for YonkeBot.
//
// This file implements an SQLite-backed store for users and listings.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	"github.com/BTreeMap/YonkeBot/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	// A single connection serializes writers and avoids "database is locked".
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// FindOrCreateUser returns the user for phone, creating it on first contact.
func (s *SQLiteStore) FindOrCreateUser(ctx context.Context, phone string) (*models.User, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, fmt.Errorf("find or create user: %w", models.ErrEmptyInput)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (phone, created_at) VALUES (?, ?) ON CONFLICT(phone) DO NOTHING`,
		phone, time.Now().UTC())
	if err != nil {
		slog.Error("SQLiteStore FindOrCreateUser insert failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to insert user %s: %w", phone, err)
	}
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone = ?`, phone))
	if err != nil {
		slog.Error("SQLiteStore FindOrCreateUser select failed", "error", err, "phone", phone)
		return nil, fmt.Errorf("failed to load user %s: %w", phone, err)
	}
	slog.Debug("SQLiteStore FindOrCreateUser succeeded", "userID", u.ID, "hasBusiness", u.HasBusiness())
	return u, nil
}

// UpdateBusinessData commits the business registration for userID.
func (s *SQLiteStore) UpdateBusinessData(ctx context.Context, userID int64, data models.BusinessData) error {
	if err := data.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET business_name = ?, city = ?, municipality = ?, neighborhood = ? WHERE id = ?`,
		strings.TrimSpace(data.Name), strings.TrimSpace(data.City),
		strings.TrimSpace(data.Municipality), strings.TrimSpace(data.Neighborhood), userID)
	if err != nil {
		slog.Error("SQLiteStore UpdateBusinessData failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to update business data for user %d: %w", userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update business data for user %d: %w", userID, models.ErrUserNotFound)
	}
	slog.Debug("SQLiteStore UpdateBusinessData succeeded", "userID", userID)
	return nil
}

// CreateListings inserts all listings in one transaction.
func (s *SQLiteStore) CreateListings(ctx context.Context, listings []models.Listing) ([]models.Listing, error) {
	if len(listings) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("SQLiteStore CreateListings begin failed", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	created := make([]models.Listing, 0, len(listings))
	now := time.Now().UTC()
	for _, l := range listings {
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, l.SellerID).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("create listings for seller %d: %w", l.SellerID, models.ErrUserNotFound)
			}
			return nil, fmt.Errorf("failed to check seller %d: %w", l.SellerID, err)
		}
		attrs, err := marshalAttributes(l.Attributes)
		if err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO listings (seller_id, title, description, price, attributes, search_text, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			l.SellerID, l.Title, l.Description, nilIfZero(l.Price), attrs, searchText(l), now)
		if err != nil {
			slog.Error("SQLiteStore CreateListings insert failed", "error", err, "sellerID", l.SellerID)
			return nil, fmt.Errorf("failed to insert listing: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read listing id: %w", err)
		}
		l.ID = id
		l.CreatedAt = now
		created = append(created, l)
	}
	if err := tx.Commit(); err != nil {
		slog.Error("SQLiteStore CreateListings commit failed", "error", err)
		return nil, fmt.Errorf("failed to commit listings: %w", err)
	}
	slog.Debug("SQLiteStore CreateListings succeeded", "count", len(created))
	return created, nil
}

// SearchListings returns listings whose search text contains every token.
func (s *SQLiteStore) SearchListings(ctx context.Context, tokens []string, limit int) ([]models.SearchResult, error) {
	folded := foldTokens(tokens)
	if len(folded) == 0 {
		return nil, nil
	}
	var where []string
	args := make([]interface{}, 0, len(folded)+1)
	for _, tok := range folded {
		where = append(where, `l.search_text LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(tok))
	}
	query := `SELECT l.id, u.business_name, l.description, l.price, u.phone
		FROM listings l JOIN users u ON u.id = l.seller_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY l.created_at DESC, l.id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("SQLiteStore SearchListings query failed", "error", err)
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		r, err := scanSearchResult(rows)
		if err != nil {
			slog.Error("SQLiteStore SearchListings scan failed", "error", err)
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore SearchListings rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate search rows: %w", err)
	}
	slog.Debug("SQLiteStore SearchListings succeeded", "tokens", len(folded), "count", len(results))
	return results, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
