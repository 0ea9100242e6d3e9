package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SelectChair opens the caller's workflow on a chair.
func (h *Handler) SelectChair(c *gin.Context) {
	chairID, ok := chairParam(c)
	if !ok {
		return
	}
	wf, err := h.booking.Select(c.Request.Context(), actor(c), chairID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

// GetWorkflow returns the caller's open workflow.
func (h *Handler) GetWorkflow(c *gin.Context) {
	wf, err := h.booking.Workflow(actor(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

// SubmitWorkflow submits the reservation editor.
func (h *Handler) SubmitWorkflow(c *gin.Context) {
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
	res, err := h.booking.Submit(c.Request.Context(), actor(c), sub)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(res.Created) > 0 {
		c.JSON(http.StatusCreated, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ConfirmModification applies the pending before/after change.
func (h *Handler) ConfirmModification(c *gin.Context) {
	res, err := h.booking.ConfirmModification(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// DeclineModification goes back to the editor.
func (h *Handler) DeclineModification(c *gin.Context) {
	wf, err := h.booking.DeclineModification(actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

// ProceedToPayment confirms the check-out and shows the fee.
func (h *Handler) ProceedToPayment(c *gin.Context) {
	wf, err := h.booking.ProceedToPayment(actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

// Pay captures the fee and checks the caller out.
func (h *Handler) Pay(c *gin.Context) {
	var req payRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	done, err := h.booking.Pay(c.Request.Context(), actor(c), req.method())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, done)
}

// Complete acknowledges the thank-you screen.
func (h *Handler) Complete(c *gin.Context) {
	if err := h.booking.Acknowledge(actor(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CloseWorkflow dismisses the caller's workflow.
func (h *Handler) CloseWorkflow(c *gin.Context) {
	h.booking.Close(actor(c).UserID)
	c.Status(http.StatusNoContent)
}
