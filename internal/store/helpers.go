package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BTreeMap/YonkeBot/internal/models"
	"github.com/BTreeMap/YonkeBot/internal/util"
)

// nilIfZero returns nil for a zero price so it is stored as NULL.
func nilIfZero(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUser scans the columns of userColumns into a User.
func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var name, city, municipality, neighborhood sql.NullString
	if err := row.Scan(&u.ID, &u.Phone, &name, &city, &municipality, &neighborhood, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.BusinessName = name.String
	u.City = city.String
	u.Municipality = municipality.String
	u.Neighborhood = neighborhood.String
	return &u, nil
}

const userColumns = `id, phone, business_name, city, municipality, neighborhood, created_at`

// scanSearchResult scans a listing joined with its seller.
func scanSearchResult(rows *sql.Rows) (models.SearchResult, error) {
	var r models.SearchResult
	var seller sql.NullString
	var price sql.NullInt64
	if err := rows.Scan(&r.ListingID, &seller, &r.Description, &price, &r.Contact); err != nil {
		return r, fmt.Errorf("scan search result failed: %w", err)
	}
	r.SellerName = seller.String
	r.Price = int(price.Int64)
	return r, nil
}

func marshalAttributes(a models.ListingAttributes) (string, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to marshal listing attributes: %w", err)
	}
	return string(b), nil
}

// likePattern wraps tok for a LIKE ... ESCAPE '\' containment match.
func likePattern(tok string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(tok) + "%"
}

// tsQuery builds an AND-joined prefix query such as "faro:* & jetta:*".
// Tokens are reduced to letters and digits; tokens left empty are dropped.
func tsQuery(tokens []string) string {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		for _, w := range util.Words(tok) {
			parts = append(parts, w+":*")
		}
	}
	return strings.Join(parts, " & ")
}
