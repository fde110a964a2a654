package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/BTreeMap/YonkeBot/internal/extract"
	"github.com/BTreeMap/YonkeBot/internal/models"
	"github.com/BTreeMap/YonkeBot/internal/render"
	"github.com/BTreeMap/YonkeBot/internal/store"
	"github.com/BTreeMap/YonkeBot/internal/util"
)

// ErrNoSession is returned by Machine.Step when the lease holds no session.
var ErrNoSession = errors.New("no active session")

// cancelWords reset any session.
var cancelWords = map[string]bool{"cancelar": true, "salir": true}

// outcome tells Step what to do with the session after a transition.
type outcome int

const (
	// stay leaves the session unchanged; the reply reprompts the same step.
	stay outcome = iota
	// advance stores the mutated session.
	advance
	// finish deletes the session.
	finish
)

// transition handles one message at one step. It mutates s only when it
// returns advance. A non-nil error leaves the session untouched.
type transition func(ctx context.Context, s *models.Session, text string) (string, outcome, error)

// Machine is the conversation state machine for business and listing
// registration.
type Machine struct {
	users    store.UserStore
	listings store.ListingStore
	table    map[models.StepTag]transition
}

// NewMachine creates a Machine that commits through the given stores.
func NewMachine(users store.UserStore, listings store.ListingStore) *Machine {
	m := &Machine{users: users, listings: listings}
	m.table = map[models.StepTag]transition{
		models.StepAwaitingBusinessName: m.businessName,
		models.StepAwaitingLocation:     m.location,
		models.StepAwaitingItemTitle:    m.itemTitle,
		models.StepAwaitingVehicle:      m.vehicle,
		models.StepAwaitingCondition:    m.condition,
		models.StepAwaitingPrice:        m.price,
	}
	return m
}

// Step feeds one message to the session held by lease and returns the reply.
// Errors are storage failures; the session is left as it was so the user can
// resend.
func (m *Machine) Step(ctx context.Context, lease SessionLease, text string) (string, error) {
	s, ok := lease.Session()
	if !ok {
		return "", ErrNoSession
	}
	if cancelWords[strings.TrimSpace(util.Fold(text))] {
		lease.Discard()
		slog.Info("Machine Step cancelled session", "sender", s.Sender, "step", s.Step)
		return render.Cancelled, nil
	}

	fn, ok := m.table[s.Step]
	if !ok {
		lease.Discard()
		slog.Warn("Machine Step unknown step, session discarded", "sender", s.Sender, "step", s.Step)
		return render.Help, nil
	}

	from := s.Step
	reply, out, err := fn(ctx, &s, text)
	if err != nil {
		slog.Error("Machine Step failed", "error", err, "sender", s.Sender, "step", from)
		return "", err
	}
	switch out {
	case advance:
		lease.Update(s)
		slog.Info("Machine Step advanced", "sender", s.Sender, "from", from, "to", s.Step)
	case finish:
		lease.Discard()
		slog.Info("Machine Step finished flow", "sender", s.Sender, "flow", s.Flow)
	default:
		slog.Warn("Machine Step rejected input", "sender", s.Sender, "step", from)
	}
	return reply, nil
}

// HasStep reports whether step has a transition.
func (m *Machine) HasStep(step models.StepTag) bool {
	_, ok := m.table[step]
	return ok
}

func (m *Machine) businessName(ctx context.Context, s *models.Session, text string) (string, outcome, error) {
	name := strings.TrimSpace(text)
	if name == "" {
		return render.InvalidBusinessName, stay, nil
	}
	if r := []rune(name); len(r) > models.MaxBusinessNameLength {
		name = strings.TrimSpace(string(r[:models.MaxBusinessNameLength]))
	}
	s.Set(models.DataKeyBusinessName, name)
	s.Step = models.StepAwaitingLocation
	return render.AskLocation(name), advance, nil
}

func (m *Machine) location(ctx context.Context, s *models.Session, text string) (string, outcome, error) {
	city, municipality, neighborhood, err := models.ParseLocation(text)
	if err != nil {
		return render.InvalidLocation, stay, nil
	}
	userID, err := sessionUserID(*s)
	if err != nil {
		slog.Error("Machine location corrupt session", "error", err, "sender", s.Sender)
		return render.GenericError, finish, nil
	}
	data := models.BusinessData{
		Name:         s.Get(models.DataKeyBusinessName),
		City:         city,
		Municipality: municipality,
		Neighborhood: neighborhood,
	}
	if err := m.users.UpdateBusinessData(ctx, userID, data); err != nil {
		if errors.Is(err, models.ErrEmptyInput) || errors.Is(err, models.ErrUserNotFound) {
			slog.Error("Machine location cannot commit business", "error", err, "sender", s.Sender)
			return render.GenericError, finish, nil
		}
		return "", stay, fmt.Errorf("commit business data: %w", err)
	}
	return render.BusinessRegistered(data.Name), finish, nil
}

func (m *Machine) itemTitle(ctx context.Context, s *models.Session, text string) (string, outcome, error) {
	title := strings.TrimSpace(text)
	if title == "" {
		return render.InvalidText, stay, nil
	}
	s.Set(models.DataKeyTitle, title)
	s.Step = models.StepAwaitingVehicle
	return render.AskVehicle, advance, nil
}

func (m *Machine) vehicle(ctx context.Context, s *models.Session, text string) (string, outcome, error) {
	vehicle := strings.TrimSpace(text)
	if vehicle == "" {
		return render.InvalidText, stay, nil
	}
	s.Set(models.DataKeyVehicle, vehicle)
	s.Step = models.StepAwaitingCondition
	return render.AskCondition, advance, nil
}

func (m *Machine) condition(ctx context.Context, s *models.Session, text string) (string, outcome, error) {
	cond, err := extract.ParseCondition(text)
	if err != nil {
		return render.InvalidCondition, stay, nil
	}
	s.Set(models.DataKeyCondition, cond)
	s.Step = models.StepAwaitingPrice
	return render.AskPrice, advance, nil
}

func (m *Machine) price(ctx context.Context, s *models.Session, text string) (string, outcome, error) {
	price, err := extract.ParsePrice(text)
	if err != nil {
		return render.InvalidPrice, stay, nil
	}
	userID, err := sessionUserID(*s)
	if err != nil {
		slog.Error("Machine price corrupt session", "error", err, "sender", s.Sender)
		return render.GenericError, finish, nil
	}
	d := models.ListingDraft{
		Title:     s.Get(models.DataKeyTitle),
		Vehicle:   s.Get(models.DataKeyVehicle),
		Condition: s.Get(models.DataKeyCondition),
		Price:     price,
	}
	listing, err := d.ToListing(userID)
	if err != nil {
		slog.Error("Machine price incomplete draft", "error", err, "sender", s.Sender)
		return render.GenericError, finish, nil
	}
	created, err := m.listings.CreateListings(ctx, []models.Listing{listing})
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			slog.Error("Machine price seller missing", "error", err, "sender", s.Sender)
			return render.GenericError, finish, nil
		}
		return "", stay, fmt.Errorf("create listing: %w", err)
	}
	return render.ListingsCreated(created), finish, nil
}

func sessionUserID(s models.Session) (int64, error) {
	raw := s.Get(models.DataKeyUserID)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session user id %q: %w", raw, err)
	}
	return id, nil
}
