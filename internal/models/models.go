// Package models defines the core data structures for YonkeBot.
//
// It includes users, listings, search projections and inbound messages, which are
// shared across the flow, store, messaging and API modules.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation constants for listing and business input.
const (
	// MinCondition is the lowest accepted condition score.
	MinCondition = 1
	// MaxCondition is the highest accepted condition score.
	MaxCondition = 10
	// MaxTitleLength defines the maximum stored length for a listing title, in runes.
	MaxTitleLength = 200
	// MaxBusinessNameLength defines the maximum stored length for a business name.
	MaxBusinessNameLength = 120
)

// Error variables for input validation. They are recoverable: the caller reprompts.
var (
	ErrEmptyInput       = errors.New("input cannot be empty")
	ErrInvalidLocation  = errors.New("location must have exactly three comma-separated parts")
	ErrInvalidCondition = errors.New("condition must be a number from 1 to 10")
	ErrInvalidPrice     = errors.New("price must be a positive number")
	ErrIncompleteDraft  = errors.New("listing draft is incomplete")
	ErrUserNotFound     = errors.New("user not found")
)

// User is a chat participant known to the store. Phone holds the sender identity
// exactly as the transport delivered it.
type User struct {
	ID           int64     `json:"id"`
	Phone        string    `json:"phone"`
	BusinessName string    `json:"business_name,omitempty"`
	City         string    `json:"city,omitempty"`
	Municipality string    `json:"municipality,omitempty"`
	Neighborhood string    `json:"neighborhood,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasBusiness reports whether the user finished business registration.
// Users without a business cannot create listings.
func (u *User) HasBusiness() bool {
	return u != nil && strings.TrimSpace(u.BusinessName) != ""
}

// BusinessData is the payload committed at the end of business registration.
type BusinessData struct {
	Name         string `json:"name"`
	City         string `json:"city"`
	Municipality string `json:"municipality"`
	Neighborhood string `json:"neighborhood"`
}

// Validate checks that every business field is present.
func (b BusinessData) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyInput
	}
	if strings.TrimSpace(b.City) == "" || strings.TrimSpace(b.Municipality) == "" || strings.TrimSpace(b.Neighborhood) == "" {
		return ErrInvalidLocation
	}
	return nil
}

// ParseLocation splits "state, municipality, neighborhood" into exactly three
// non-empty parts.
func ParseLocation(text string) (city, municipality, neighborhood string, err error) {
	parts := strings.Split(text, ",")
	if len(parts) != 3 {
		return "", "", "", ErrInvalidLocation
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return "", "", "", ErrInvalidLocation
		}
	}
	return parts[0], parts[1], parts[2], nil
}

// ListingAttributes holds the structured fields stored alongside a listing.
type ListingAttributes struct {
	Vehicle   string `json:"vehicle"`
	Condition string `json:"condition"`
}

// ListingDraft is a listing candidate before persistence. Price 0 means absent.
type ListingDraft struct {
	Title     string `json:"title,omitempty"`
	Vehicle   string `json:"vehicle,omitempty"`
	Condition string `json:"condition,omitempty"` // canonical "N/10"
	Price     int    `json:"price,omitempty"`
}

// Complete reports whether all required fields are present. An empty title is
// incomplete because a listing needs a human-readable name.
func (d ListingDraft) Complete() bool {
	return strings.TrimSpace(d.Title) != "" &&
		strings.TrimSpace(d.Vehicle) != "" &&
		d.Condition != "" &&
		d.Price > 0
}

// Missing lists the names of the fields that keep the draft incomplete.
func (d ListingDraft) Missing() []string {
	var missing []string
	if strings.TrimSpace(d.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(d.Vehicle) == "" {
		missing = append(missing, "vehicle")
	}
	if d.Condition == "" {
		missing = append(missing, "condition")
	}
	if d.Price <= 0 {
		missing = append(missing, "price")
	}
	return missing
}

// Description renders the derived listing description.
func (d ListingDraft) Description() string {
	return fmt.Sprintf("%s para %s, Condición: %s", d.Title, d.Vehicle, d.Condition)
}

// Attributes returns the structured attributes of the draft.
func (d ListingDraft) Attributes() ListingAttributes {
	return ListingAttributes{Vehicle: d.Vehicle, Condition: d.Condition}
}

// ToListing turns a complete draft into a listing owned by sellerID.
func (d ListingDraft) ToListing(sellerID int64) (Listing, error) {
	if !d.Complete() {
		return Listing{}, fmt.Errorf("%w: missing %s", ErrIncompleteDraft, strings.Join(d.Missing(), ", "))
	}
	title := strings.TrimSpace(d.Title)
	if r := []rune(title); len(r) > MaxTitleLength {
		title = strings.TrimSpace(string(r[:MaxTitleLength]))
	}
	d.Title = title
	return Listing{
		SellerID:    sellerID,
		Title:       title,
		Description: d.Description(),
		Price:       d.Price,
		Attributes:  d.Attributes(),
	}, nil
}

// Listing is a persisted item for sale.
type Listing struct {
	ID          int64             `json:"id"`
	SellerID    int64             `json:"seller_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Price       int               `json:"price,omitempty"`
	Attributes  ListingAttributes `json:"attributes"`
	CreatedAt   time.Time         `json:"created_at"`
}

// SearchResult is a listing joined with its seller, as shown to buyers.
// Contact is the seller's raw sender identity.
type SearchResult struct {
	ListingID   int64  `json:"listing_id"`
	SellerName  string `json:"seller_name,omitempty"`
	Description string `json:"description"`
	Price       int    `json:"price,omitempty"`
	Contact     string `json:"contact"`
}

// Response represents an inbound chat message from a sender.
type Response struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
