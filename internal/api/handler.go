package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"chair-reservation-backend/internal/auth"
	"chair-reservation-backend/internal/booking"
	"chair-reservation-backend/internal/interval"
	"chair-reservation-backend/internal/mw"
	"chair-reservation-backend/internal/parse"
	"chair-reservation-backend/internal/session"
	"chair-reservation-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	booking *booking.Orchestrator
	auth    *auth.Service
	webpush *webpush.Options
	loc     *time.Location
}

// NewHandler creates a new API handler. loc is the timezone editor dates are
// entered in.
func NewHandler(s store.Store, o *booking.Orchestrator, a *auth.Service, webpushOptions *webpush.Options, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		store:   s,
		booking: o,
		auth:    a,
		webpush: webpushOptions,
		loc:     loc,
	}
}

// actor returns the caller as a booking actor; anonymous callers get the zero Actor.
func actor(c *gin.Context) booking.Actor {
	id, ok := mw.CurrentIdentity(c)
	if !ok {
		return booking.Actor{}
	}
	return booking.Actor{UserID: id.UserID, Name: id.DisplayName, IsGuest: id.IsGuest}
}

func chairParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chair id"})
		return 0, false
	}
	return id, true
}

// writeError maps domain errors onto status codes. Guard failures carry enough
// detail for the client to let the user pick another time.
func writeError(c *gin.Context, err error) {
	var conflict *booking.SlotConflictError
	var tooSoon *booking.AdvanceBookingTooSoonError

	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":       err.Error(),
			"chair_id":    conflict.ChairID,
			"conflicting": conflict.Conflicting,
		})
	case errors.As(err, &tooSoon):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":          err.Error(),
			"chair_id":       tooSoon.ChairID,
			"earliest_start": tooSoon.EarliestStart,
		})
	case errors.Is(err, booking.ErrInvalidCredential),
		errors.Is(err, auth.ErrInvalidLogin):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrPaymentFailed):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrNotOwner),
		errors.Is(err, booking.ErrUnavailable):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrNoWorkflow),
		errors.Is(err, booking.ErrWrongStage),
		errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, session.ErrUnknownChair):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, interval.ErrInvalid),
		errors.Is(err, parse.ErrFormat),
		errors.Is(err, booking.ErrSlotInPast),
		errors.Is(err, booking.ErrEmptyBatch),
		errors.Is(err, auth.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrPersistence):
		log.Printf("persistence error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage is unavailable, please try again"})
	case errors.Is(err, session.ErrAlreadyOccupied),
		errors.Is(err, session.ErrNotOccupied):
		log.Printf("Error: out-of-order session action on %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
	default:
		log.Printf("Error handling %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
	}
}
