package status

import (
	"time"

	"chair-reservation-backend/internal/interval"
	"chair-reservation-backend/internal/model"
	"chair-reservation-backend/internal/session"
)

// Status is the display status of a chair for one viewer.
type Status string

const (
	Free                  Status = "free"
	ReservedByOther       Status = "reserved_by_other"
	ReservedByCurrentUser Status = "reserved_by_current_user"
	Occupied              Status = "occupied"
	SelectedInUI          Status = "selected"
)

// Viewer identifies whose perspective a status is derived for.
type Viewer struct {
	UserID  string
	IsGuest bool
}

// Derive computes the chair's status at now. First match wins:
//  1. physical occupancy
//  2. a reservation containing now, split by holder
//  3. any reservation held by a non-guest viewer
//  4. UI selection
//  5. free
func Derive(chair session.Chair, reservations []model.Reservation, viewer Viewer, selected bool, now time.Time) Status {
	if chair.IsOccupied() {
		return Occupied
	}

	for _, r := range reservations {
		if r.ChairID != chair.ID || !interval.Contains(r.Interval(), now) {
			continue
		}
		if viewer.UserID != "" && r.UserID == viewer.UserID {
			return ReservedByCurrentUser
		}
		return ReservedByOther
	}

	if !viewer.IsGuest && viewer.UserID != "" {
		for _, r := range reservations {
			if r.ChairID == chair.ID && r.UserID == viewer.UserID {
				return ReservedByCurrentUser
			}
		}
	}

	if selected {
		return SelectedInUI
	}
	return Free
}
