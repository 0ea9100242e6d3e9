package booking

import (
	"errors"
	"fmt"
	"time"

	"chair-reservation-backend/internal/model"
)

var (
	ErrInvalidCredential = errors.New("credential does not match the reservation holder")
	ErrNotOwner          = errors.New("reservation belongs to another user")
	ErrUnavailable       = errors.New("chair is not available to this user")
	ErrNoWorkflow        = errors.New("no open workflow")
	ErrWrongStage        = errors.New("action not allowed at this stage")
	ErrPaymentFailed     = errors.New("payment failed")
	ErrSlotInPast        = errors.New("slot has already ended")
	ErrEmptyBatch        = errors.New("no chairs selected")
)

// SlotConflictError rejects a whole batch because one chair is already booked.
type SlotConflictError struct {
	ChairID     int64
	Conflicting model.Reservation
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("chair %d is already reserved from %s to %s",
		e.ChairID, e.Conflicting.StartAt.Format(time.RFC3339), e.Conflicting.EndAt.Format(time.RFC3339))
}

// AdvanceBookingTooSoonError rejects a slot on an occupied chair that starts
// before EarliestStart.
type AdvanceBookingTooSoonError struct {
	ChairID       int64
	EarliestStart time.Time
}

func (e *AdvanceBookingTooSoonError) Error() string {
	return fmt.Sprintf("chair %d is in use; reservations must start at or after %s",
		e.ChairID, e.EarliestStart.Format(time.RFC3339))
}
