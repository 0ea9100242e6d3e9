package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chair-reservation-backend/internal/auth"
	"chair-reservation-backend/internal/mw"
)

type signUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type verifyRequest struct {
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	User  auth.Identity `json:"user"`
	Token string        `json:"token"`
}

// SignUp registers an account and signs it in.
func (h *Handler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	id, token, err := h.auth.SignUp(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse{User: id, Token: token})
}

// Login signs an existing account in.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	id, token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{User: id, Token: token})
}

// GuestLogin issues a guest identity.
func (h *Handler) GuestLogin(c *gin.Context) {
	id, token, err := h.auth.GuestLogin()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{User: id, Token: token})
}

// Me returns the caller's identity.
func (h *Handler) Me(c *gin.Context) {
	id, _ := mw.CurrentIdentity(c)
	c.JSON(http.StatusOK, id)
}

// VerifyPassword checks the caller's own password.
func (h *Handler) VerifyPassword(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	id, _ := mw.CurrentIdentity(c)
	ok, err := h.auth.VerifyCredential(c.Request.Context(), id.UserID, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": ok})
}
