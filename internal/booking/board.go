package booking

import (
	"time"

	"chair-reservation-backend/internal/model"
	"chair-reservation-backend/internal/session"
	"chair-reservation-backend/internal/status"
)

// ChairView is one chair as shown to a viewer.
type ChairView struct {
	ID         int64               `json:"id"`
	Name       string              `json:"name"`
	Status     status.Status       `json:"status"`
	OccupiedBy bool                `json:"occupied_by_me"`
	Since      *time.Time          `json:"since,omitempty"`
	Upcoming   []model.Reservation `json:"reservations"`
	Mine       *model.Reservation  `json:"my_reservation,omitempty"`
}

// Board is every chair's derived status at one instant.
type Board struct {
	At     time.Time   `json:"at"`
	Chairs []ChairView `json:"chairs"`
}

// Board derives the status of every chair for actor. selected is the chair the
// actor has highlighted, or 0.
func (o *Orchestrator) Board(actor Actor, selected int64) Board {
	now := o.clock.Now()
	viewer := status.Viewer{UserID: actor.UserID, IsGuest: actor.IsGuest}

	chairs := o.sessions.Chairs()
	b := Board{At: now, Chairs: make([]ChairView, 0, len(chairs))}
	for _, ch := range chairs {
		b.Chairs = append(b.Chairs, o.view(ch, viewer, selected == ch.ID, now))
	}
	return b
}

func (o *Orchestrator) view(ch session.Chair, viewer status.Viewer, selected bool, now time.Time) ChairView {
	v := ChairView{
		ID:         ch.ID,
		Name:       ch.DisplayName,
		Status:     status.Derive(ch, o.reservations.List(ch.ID), viewer, selected, now),
		OccupiedBy: ch.OccupiedBy(viewer.UserID),
		Upcoming:   o.reservations.Upcoming(ch.ID, o.opts.CardLimit),
	}
	if ch.IsOccupied() {
		since := ch.Occupancy.StartedAt
		v.Since = &since
	}
	if !viewer.IsGuest {
		if mine, ok := o.reservations.ForUser(ch.ID, viewer.UserID); ok {
			v.Mine = &mine
		}
	}
	if v.Upcoming == nil {
		v.Upcoming = []model.Reservation{}
	}
	return v
}
