package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chair-reservation-backend/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint         string  `json:"endpoint" binding:"required"`
	P256DH           string  `json:"p256dh" binding:"required"`
	Auth             string  `json:"auth" binding:"required"`
	SubscribedChairs []int64 `json:"subscribed_chairs"`
}

// PutSubscription creates or replaces a push subscription and the chairs it
// wants "now free" notifications for.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}

	err := h.store.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&subscription).Error; err != nil {
			return err
		}

		var chairs []model.Chair
		if len(req.SubscribedChairs) > 0 {
			if err := tx.Find(&chairs, req.SubscribedChairs).Error; err != nil {
				return err
			}
		}
		return tx.Model(&subscription).Association("Chairs").Replace(&chairs)
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription removes a push subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.store.DB().WithContext(c.Request.Context()).
		Select("Chairs").
		Delete(&model.PushSubscription{Endpoint: req.Endpoint}).Error; err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// rawQueryParam reads key from the raw query without URL-decoding it; push
// endpoints are stored exactly as the browser sent them.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription returns the chairs a subscription is watching.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	var subscription model.PushSubscription
	err := h.store.DB().WithContext(c.Request.Context()).Preload("Chairs").First(&subscription, "endpoint = ?", raw).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	chairIDs := make([]int64, len(subscription.Chairs))
	for i, chair := range subscription.Chairs {
		chairIDs[i] = chair.ID
	}
	c.JSON(http.StatusOK, gin.H{"subscribed_chairs": chairIDs})
}
