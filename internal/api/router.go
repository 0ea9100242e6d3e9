package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"chair-reservation-backend/config"
	"chair-reservation-backend/internal/mw"
)

// NewRouter wires every route under /api.
func NewRouter(h *Handler, tokens mw.TokenParser, cfg config.ServerConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	signedIn := mw.RequireIdentity()
	registered := mw.RequireRegistered()

	api := r.Group("/api")
	api.Use(rateLimiter, mw.Identify(tokens))
	{
		api.POST("/auth/signup", h.SignUp)
		api.POST("/auth/login", h.Login)
		api.POST("/auth/guest", h.GuestLogin)
		api.GET("/auth/me", signedIn, h.Me)
		api.POST("/auth/verify", registered, h.VerifyPassword)

		api.GET("/chairs", caching, h.GetChairs)
		api.GET("/board", h.GetBoard)
		api.GET("/chairs/:id/reservations", h.GetReservations)
		api.GET("/chairs/:id/availability", h.GetAvailability)
		api.GET("/chairs/:id/fee", h.GetFee)
		api.POST("/chairs/:id/checkin", signedIn, h.CheckIn)
		api.POST("/chairs/:id/checkout", signedIn, h.CheckOut)
		api.POST("/chairs/:id/select", signedIn, h.SelectChair)

		api.POST("/reservations", registered, h.CreateReservations)
		api.DELETE("/reservations/:id", registered, h.CancelReservation)

		wf := api.Group("/workflow", signedIn)
		wf.GET("", h.GetWorkflow)
		wf.DELETE("", h.CloseWorkflow)
		wf.POST("/submit", h.SubmitWorkflow)
		wf.POST("/confirm", h.ConfirmModification)
		wf.POST("/decline", h.DeclineModification)
		wf.POST("/payment", h.ProceedToPayment)
		wf.POST("/pay", h.Pay)
		wf.POST("/complete", h.Complete)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", caching, h.GetVAPIDPublicKey)
	}

	return r
}
