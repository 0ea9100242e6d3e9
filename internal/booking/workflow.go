package booking

import (
	"time"

	"chair-reservation-backend/internal/interval"
	"chair-reservation-backend/internal/model"
	"chair-reservation-backend/internal/payment"
	"chair-reservation-backend/internal/session"
)

// Stage is where a user's workflow currently stands.
type Stage string

const (
	StageIdle                 Stage = "idle"
	StageEditor               Stage = "editor"
	StageConfirmModification  Stage = "confirm_modification"
	StageGuestCheckIn         Stage = "guest_check_in"
	StageDirectCheckIn        Stage = "direct_check_in"
	StageCheckOutConfirmation Stage = "check_out_confirmation"
	StagePayment              Stage = "payment"
	StageCompleted            Stage = "completed"
)

// PathKind tells whether an editor submission creates or replaces.
type PathKind string

const (
	PathCreate PathKind = "create"
	PathModify PathKind = "modify"
)

// Path is Create, or Modify with the id of the reservation being replaced.
type Path struct {
	Kind       PathKind `json:"kind"`
	ReplacedID string   `json:"replaced_id,omitempty"`
}

// Submission is an editor form: one slot booked on every listed chair.
type Submission struct {
	ChairIDs  []int64
	Slot      interval.Interval
	PartySize int
}

// PendingModification is the before/after shown for confirmation.
type PendingModification struct {
	Before    model.Reservation `json:"before"`
	After     interval.Interval `json:"after"`
	ChairIDs  []int64           `json:"chair_ids"`
	PartySize int               `json:"people"`
}

// Workflow is one user's open dialog on one chair.
type Workflow struct {
	UserID    string               `json:"-"`
	ChairID   int64                `json:"chair_id"`
	Action    Action               `json:"action"`
	Stage     Stage                `json:"stage"`
	Path      *Path                `json:"path,omitempty"`
	Existing  *model.Reservation   `json:"existing,omitempty"`
	Suggested *interval.Interval   `json:"suggested,omitempty"`
	Pending   *PendingModification `json:"pending,omitempty"`
	Quote     *session.Receipt     `json:"quote,omitempty"`
	Receipt   *session.Receipt     `json:"receipt,omitempty"`
	Capture   *payment.Capture     `json:"capture,omitempty"`
	OpenedAt  time.Time            `json:"opened_at"`

	generation uint64
}

func (w *Workflow) clone() Workflow {
	c := *w
	return c
}

// suggestedSlot is the editor's default: one hour starting a minute from now,
// or at the advance-booking horizon when the chair is in use.
func suggestedSlot(now time.Time, occupied bool, advance time.Duration) interval.Interval {
	start := now.Truncate(time.Minute).Add(time.Minute)
	if occupied {
		start = now.Truncate(time.Minute).Add(advance)
		if start.Before(now.Add(advance)) {
			start = start.Add(time.Minute)
		}
	}
	return interval.Interval{Start: start, End: start.Add(time.Hour)}
}
