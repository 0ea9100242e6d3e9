package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"chair-reservation-backend/internal/clock"
	"chair-reservation-backend/internal/model"
)

var (
	ErrAlreadyOccupied = errors.New("chair is already occupied")
	ErrNotOccupied     = errors.New("chair is not occupied")
	ErrUnknownChair    = errors.New("unknown chair")
)

// State is the occupancy state of a chair.
type State string

const (
	Free     State = "free"
	Occupied State = "occupied"
)

// Occupancy is Free, or Occupied by UserID since StartedAt.
type Occupancy struct {
	State     State     `json:"state"`
	UserID    string    `json:"user_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// Chair is a snapshot of one chair and its occupancy.
type Chair struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"name"`
	Occupancy   Occupancy `json:"occupancy"`
}

// IsOccupied reports whether the chair is in use.
func (c Chair) IsOccupied() bool { return c.Occupancy.State == Occupied }

// OccupiedBy reports whether userID is the current occupant.
func (c Chair) OccupiedBy(userID string) bool {
	return c.IsOccupied() && userID != "" && c.Occupancy.UserID == userID
}

// Receipt is the billed outcome of a session, or a preview of it.
type Receipt struct {
	ChairID int64     `json:"chair_id"`
	UserID  string    `json:"user_id"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Minutes int64     `json:"minutes"`
	Fee     int64     `json:"fee"`
}

// Persistence is the slice of the store the machine needs.
type Persistence interface {
	ListOpenOccupancies(ctx context.Context) ([]model.OccupancyOpen, error)
	OpenOccupancy(ctx context.Context, o model.OccupancyOpen) error
	CloseOccupancy(ctx context.Context, o model.OccupancyOpen, end time.Time, minutes, fee int64) error
}

// Machine owns the occupancy lifecycle of every chair in the pool.
// It knows nothing about reservations.
type Machine struct {
	mu     sync.RWMutex
	chairs map[int64]*Chair
	order  []int64
	rate   int64
	clock  clock.Clock
	db     Persistence
}

// NewMachine creates a machine with every chair Free.
func NewMachine(chairs []model.Chair, ratePerMinute int64, c clock.Clock, db Persistence) *Machine {
	m := &Machine{
		chairs: make(map[int64]*Chair, len(chairs)),
		rate:   ratePerMinute,
		clock:  c,
		db:     db,
	}
	for _, ch := range chairs {
		m.chairs[ch.ID] = &Chair{ID: ch.ID, DisplayName: ch.DisplayName, Occupancy: Occupancy{State: Free}}
		m.order = append(m.order, ch.ID)
	}
	return m
}

// Restore re-applies sessions that were open when the process last stopped.
func (m *Machine) Restore(ctx context.Context) error {
	open, err := m.db.ListOpenOccupancies(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range open {
		ch, ok := m.chairs[o.ChairID]
		if !ok {
			log.Printf("Warning: open session for unknown chair %d ignored", o.ChairID)
			continue
		}
		ch.Occupancy = Occupancy{State: Occupied, UserID: o.UserID, StartedAt: o.StartedAt}
	}
	log.Printf("restored %d open sessions", len(open))
	return nil
}

// RatePerMinute returns the configured unit rate.
func (m *Machine) RatePerMinute() int64 { return m.rate }

// Chairs returns snapshots of all chairs in pool order.
func (m *Machine) Chairs() []Chair {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Chair, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.chairs[id])
	}
	return out
}

// Chair returns a snapshot of one chair.
func (m *Machine) Chair(id int64) (Chair, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.chairs[id]
	if !ok {
		return Chair{}, false
	}
	return *ch, true
}

// CheckIn moves a Free chair to Occupied by userID, starting now.
func (m *Machine) CheckIn(ctx context.Context, chairID int64, userID string) (Chair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.chairs[chairID]
	if !ok {
		return Chair{}, fmt.Errorf("chair %d: %w", chairID, ErrUnknownChair)
	}
	if ch.IsOccupied() {
		return *ch, fmt.Errorf("chair %d: %w", chairID, ErrAlreadyOccupied)
	}

	now := m.clock.Now()
	if err := m.db.OpenOccupancy(ctx, model.OccupancyOpen{ChairID: chairID, UserID: userID, StartedAt: now}); err != nil {
		return *ch, err
	}
	ch.Occupancy = Occupancy{State: Occupied, UserID: userID, StartedAt: now}
	return *ch, nil
}

// Quote previews the fee of the chair's running session as of now.
func (m *Machine) Quote(chairID int64) (Receipt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ch, ok := m.chairs[chairID]
	if !ok {
		return Receipt{}, fmt.Errorf("chair %d: %w", chairID, ErrUnknownChair)
	}
	if !ch.IsOccupied() {
		return Receipt{}, fmt.Errorf("chair %d: %w", chairID, ErrNotOccupied)
	}
	return m.receipt(ch, m.clock.Now()), nil
}

// CheckOut bills the session as of now and returns the chair to Free.
func (m *Machine) CheckOut(ctx context.Context, chairID int64) (Receipt, error) {
	return m.CheckOutAt(ctx, chairID, m.clock.Now())
}

// CheckOutAt bills the session as of at, typically the instant a payment was
// quoted, and returns the chair to Free.
func (m *Machine) CheckOutAt(ctx context.Context, chairID int64, at time.Time) (Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.chairs[chairID]
	if !ok {
		return Receipt{}, fmt.Errorf("chair %d: %w", chairID, ErrUnknownChair)
	}
	if !ch.IsOccupied() {
		return Receipt{}, fmt.Errorf("chair %d: %w", chairID, ErrNotOccupied)
	}

	rcpt := m.receipt(ch, at)
	open := model.OccupancyOpen{ChairID: chairID, UserID: ch.Occupancy.UserID, StartedAt: ch.Occupancy.StartedAt}
	if err := m.db.CloseOccupancy(ctx, open, rcpt.End, rcpt.Minutes, rcpt.Fee); err != nil {
		return Receipt{}, err
	}
	ch.Occupancy = Occupancy{State: Free}
	return rcpt, nil
}

func (m *Machine) receipt(ch *Chair, at time.Time) Receipt {
	return Receipt{
		ChairID: ch.ID,
		UserID:  ch.Occupancy.UserID,
		Start:   ch.Occupancy.StartedAt,
		End:     at,
		Minutes: BilledMinutes(ch.Occupancy.StartedAt, at),
		Fee:     CalculateFee(ch.Occupancy.StartedAt, at, m.rate),
	}
}
