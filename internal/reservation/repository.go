package reservation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"chair-reservation-backend/internal/clock"
	"chair-reservation-backend/internal/interval"
	"chair-reservation-backend/internal/model"
	"chair-reservation-backend/internal/store"
)

// Persistence is the slice of the store the repository needs.
type Persistence interface {
	ListReservations(ctx context.Context) ([]model.Reservation, error)
	InsertReservation(ctx context.Context, r *model.Reservation) error
	DeleteReservation(ctx context.Context, id string) error
}

// Repository is the in-process authority over reservations. Each chair's
// reservations are kept ordered by start time; expired entries are filtered
// lazily on read and dropped by PruneExpired.
type Repository struct {
	mu      sync.RWMutex
	db      Persistence
	clock   clock.Clock
	byChair map[int64][]model.Reservation
}

// NewRepository creates an empty repository. Call Load to read stored reservations.
func NewRepository(db Persistence, c clock.Clock) *Repository {
	return &Repository{
		db:      db,
		clock:   c,
		byChair: make(map[int64][]model.Reservation),
	}
}

// Load replaces the in-memory set with what the store holds.
func (r *Repository) Load(ctx context.Context) error {
	all, err := r.db.ListReservations(ctx)
	if err != nil {
		return err
	}
	byChair := make(map[int64][]model.Reservation)
	for _, res := range all {
		byChair[res.ChairID] = append(byChair[res.ChairID], res)
	}
	for id := range byChair {
		sortByStart(byChair[id])
	}

	r.mu.Lock()
	r.byChair = byChair
	r.mu.Unlock()
	log.Printf("loaded %d reservations", len(all))
	return nil
}

// List returns the chair's non-expired reservations in ascending start order.
func (r *Repository) List(chairID int64) []model.Reservation {
	return r.Upcoming(chairID, 0)
}

// Upcoming is List capped at limit entries; limit <= 0 means no cap.
func (r *Repository) Upcoming(chairID int64, limit int) []model.Reservation {
	now := r.clock.Now()
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Reservation
	for _, res := range r.byChair[chairID] {
		if res.Expired(now) {
			continue
		}
		out = append(out, res)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// IsAvailable reports whether no reservation on the chair overlaps iv.
func (r *Repository) IsAvailable(chairID int64, iv interval.Interval) bool {
	_, found := r.Conflict(chairID, iv, "")
	return !found
}

// IsAvailableExcluding is IsAvailable ignoring the reservation with excludeID,
// so a reservation never conflicts with its own replacement.
func (r *Repository) IsAvailableExcluding(chairID int64, iv interval.Interval, excludeID string) bool {
	_, found := r.Conflict(chairID, iv, excludeID)
	return !found
}

// Conflict returns the earliest stored reservation on the chair overlapping iv.
// The whole stored set is scanned, never a display-capped subset.
func (r *Repository) Conflict(chairID int64, iv interval.Interval, excludeID string) (model.Reservation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, res := range r.byChair[chairID] {
		if excludeID != "" && res.ID == excludeID {
			continue
		}
		if !res.StartAt.Before(iv.End) {
			// Sorted by start: nothing later can overlap.
			break
		}
		if interval.Overlaps(res.Interval(), iv) {
			return res, true
		}
	}
	return model.Reservation{}, false
}

// Create persists res and adds it to the ordered set. It does not re-check
// availability; callers guard before creating.
func (r *Repository) Create(ctx context.Context, res model.Reservation) (model.Reservation, error) {
	if _, err := interval.New(res.StartAt, res.EndAt); err != nil {
		return model.Reservation{}, err
	}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = r.clock.Now()
	}
	if res.PartySize < 1 {
		res.PartySize = 1
	}

	if err := r.db.InsertReservation(ctx, &res); err != nil {
		return model.Reservation{}, err
	}

	r.mu.Lock()
	list := append(r.byChair[res.ChairID], res)
	sortByStart(list)
	r.byChair[res.ChairID] = list
	r.mu.Unlock()
	return res, nil
}

// Cancel removes the reservation with id. Unknown ids yield store.ErrNotFound
// and never touch other reservations.
func (r *Repository) Cancel(ctx context.Context, id string) error {
	if _, ok := r.Get(id); !ok {
		return fmt.Errorf("reservation %s: %w", id, store.ErrNotFound)
	}

	err := r.db.DeleteReservation(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	// Gone in the store either way; drop the local copy.
	r.remove(id)
	return err
}

// Get looks a reservation up by id, expired or not.
func (r *Repository) Get(id string) (model.Reservation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, list := range r.byChair {
		for _, res := range list {
			if res.ID == id {
				return res, true
			}
		}
	}
	return model.Reservation{}, false
}

// Current returns the reservation whose interval contains at.
func (r *Repository) Current(chairID int64, at time.Time) (model.Reservation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.byChair[chairID] {
		if res.StartAt.After(at) {
			break
		}
		if interval.Contains(res.Interval(), at) {
			return res, true
		}
	}
	return model.Reservation{}, false
}

// ForUser returns the user's earliest non-expired reservation on the chair.
func (r *Repository) ForUser(chairID int64, userID string) (model.Reservation, bool) {
	if userID == "" {
		return model.Reservation{}, false
	}
	for _, res := range r.List(chairID) {
		if res.UserID == userID {
			return res, true
		}
	}
	return model.Reservation{}, false
}

// PruneExpired drops reservations that ended at or before now and reports how many.
func (r *Repository) PruneExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	pruned := 0
	for id, list := range r.byChair {
		kept := list[:0]
		for _, res := range list {
			if res.Expired(now) {
				pruned++
				continue
			}
			kept = append(kept, res)
		}
		r.byChair[id] = kept
	}
	return pruned
}

func (r *Repository) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for chairID, list := range r.byChair {
		for i, res := range list {
			if res.ID == id {
				r.byChair[chairID] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func sortByStart(list []model.Reservation) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].StartAt.Before(list[j].StartAt)
	})
}
