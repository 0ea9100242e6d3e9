package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chair-reservation-backend/internal/parse"
	"chair-reservation-backend/internal/payment"
)

// GetChairs lists the chair pool.
func (h *Handler) GetChairs(c *gin.Context) {
	chairs, err := h.store.ListChairs(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, chairs)
}

// GetBoard returns every chair's status for the caller at the current instant.
func (h *Handler) GetBoard(c *gin.Context) {
	var selected int64
	if raw := c.Query("selected"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid selected chair"})
			return
		}
		selected = id
	}
	c.JSON(http.StatusOK, h.booking.Board(actor(c), selected))
}

// GetReservations lists a chair's upcoming reservations.
func (h *Handler) GetReservations(c *gin.Context) {
	chairID, ok := chairParam(c)
	if !ok {
		return
	}
	list, err := h.booking.Reservations(chairID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetAvailability checks ?start=&end= (RFC3339) against the chair's reservations.
func (h *Handler) GetAvailability(c *gin.Context) {
	chairID, ok := chairParam(c)
	if !ok {
		return
	}
	iv, err := parse.Range(c.Query("start"), c.Query("end"))
	if err != nil {
		writeError(c, err)
		return
	}
	available, blocking, err := h.booking.Availability(chairID, iv)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := gin.H{"available": available}
	if blocking != nil {
		resp["conflicting"] = blocking
	}
	c.JSON(http.StatusOK, resp)
}

// GetFee previews the running session's fee.
func (h *Handler) GetFee(c *gin.Context) {
	chairID, ok := chairParam(c)
	if !ok {
		return
	}
	q, err := h.booking.Fee(chairID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

type checkInRequest struct {
	Credential string `json:"credential"`
}

// CheckIn occupies the chair for the caller.
func (h *Handler) CheckIn(c *gin.Context) {
	chairID, ok := chairParam(c)
	if !ok {
		return
	}
	var req checkInRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	ch, err := h.booking.CheckIn(c.Request.Context(), actor(c), chairID, req.Credential)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

type payRequest struct {
	Method payment.Method `json:"method"`
}

func (r payRequest) method() payment.Method {
	if r.Method == "" {
		return payment.MethodTouch
	}
	return r.Method
}

// CheckOut pays for and ends the caller's session on the chair.
func (h *Handler) CheckOut(c *gin.Context) {
	chairID, ok := chairParam(c)
	if !ok {
		return
	}
	var req payRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	done, err := h.booking.CheckOutAndPay(c.Request.Context(), actor(c), chairID, req.method())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, done)
}
