package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chair-reservation-backend/internal/booking"
	"chair-reservation-backend/internal/interval"
	"chair-reservation-backend/internal/parse"
)

// submissionRequest accepts either the editor form (date, start_time,
// end_time in the configured timezone) or an RFC3339 start/end pair.
type submissionRequest struct {
	parse.SlotInput
	ChairIDs []int64 `json:"chair_ids"`
	Start    string  `json:"start"`
	End      string  `json:"end"`
	People   int     `json:"people"`
}

func (r submissionRequest) submission(loc *time.Location) (booking.Submission, error) {
	var iv interval.Interval
	var err error
	if !r.SlotInput.Empty() {
		iv, err = parse.Slot(r.SlotInput, loc)
	} else {
		iv, err = parse.Range(r.Start, r.End)
	}
	if err != nil {
		return booking.Submission{}, err
	}
	return booking.Submission{ChairIDs: r.ChairIDs, Slot: iv, PartySize: r.People}, nil
}

// CreateReservations books one slot on every listed chair, or none.
func (h *Handler) CreateReservations(c *gin.Context) {
	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	sub, err := req.submission(h.loc)
	if err != nil {
		writeError(c, err)
		return
	}
	created, err := h.booking.CreateReservations(c.Request.Context(), actor(c), sub)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// CancelReservation deletes one of the caller's reservations.
func (h *Handler) CancelReservation(c *gin.Context) {
	if err := h.booking.CancelReservation(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
