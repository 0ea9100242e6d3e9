package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"chair-reservation-backend/config"
	"chair-reservation-backend/internal/app"
	"chair-reservation-backend/internal/clock"
	"chair-reservation-backend/internal/db"
	"chair-reservation-backend/internal/model"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "integration-secret"
	cfg.Auth.BcryptCost = 4
	cfg.Booking.Chairs = []config.ChairConfig{{ID: 1, Name: "チェア 1"}, {ID: 2, Name: "チェア 2"}}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Sweeper.RetentionHours = 1
	cfg.ApplyDefaults()
	return cfg
}

func call(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// TestChairLifecycle books, occupies and bills a chair over HTTP, restarts the
// service on the same database, and checks that state survives.
func TestChairLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testDB, err := gorm.Open(sqlite.Open("file:lifecycle?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)
	clk := clock.NewManual(t0)
	cfg := testConfig()

	a, err := app.Build(ctx, cfg, testDB, clk)
	require.NoError(t, err)

	var alice, bob struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	w := call(t, a.Router, http.MethodPost, "/api/auth/signup", "", gin.H{"email": "alice@example.com", "password": "alice-pass", "name": "Alice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alice))
	w = call(t, a.Router, http.MethodPost, "/api/auth/signup", "", gin.H{"email": "bob@example.com", "password": "bob-pass", "name": "Bob"})
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bob))

	var reservationID string
	t.Run("reserve", func(t *testing.T) {
		w := call(t, a.Router, http.MethodPost, "/api/reservations", alice.Token, gin.H{
			"chair_ids": []int64{2},
			"start":     t0.Add(time.Minute).Format(time.RFC3339),
			"end":       t0.Add(61 * time.Minute).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var created []model.Reservation
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		reservationID = created[0].ID

		var stored model.Reservation
		require.NoError(t, testDB.First(&stored, "id = ?", reservationID).Error)
		assert.Equal(t, alice.User.ID, stored.UserID)
		assert.Equal(t, "Alice", stored.UserName)

		w = call(t, a.Router, http.MethodPost, "/api/reservations", bob.Token, gin.H{
			"chair_ids": []int64{2},
			"start":     t0.Add(30 * time.Minute).Format(time.RFC3339),
			"end":       t0.Add(90 * time.Minute).Format(time.RFC3339),
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("check in", func(t *testing.T) {
		w := call(t, a.Router, http.MethodPost, "/api/chairs/1/checkin", bob.Token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var open model.OccupancyOpen
		require.NoError(t, testDB.First(&open, "chair_id = ?", 1).Error)
		assert.Equal(t, bob.User.ID, open.UserID)
	})

	t.Run("restart restores state", func(t *testing.T) {
		restarted, err := app.Build(ctx, cfg, testDB, clk)
		require.NoError(t, err)
		a = restarted

		ch, ok := a.Sessions.Chair(1)
		require.True(t, ok)
		assert.True(t, ch.OccupiedBy(bob.User.ID))
		_, ok = a.Reservations.Get(reservationID)
		assert.True(t, ok)

		w := call(t, a.Router, http.MethodGet, "/api/chairs", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[{"id":1,"name":"チェア 1"},{"id":2,"name":"チェア 2"}]`, w.Body.String())
	})

	t.Run("check out and pay", func(t *testing.T) {
		clk.Advance(15 * time.Minute)
		w := call(t, a.Router, http.MethodPost, "/api/chairs/1/checkout", bob.Token, gin.H{"method": "touch"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var openCount int64
		testDB.Model(&model.OccupancyOpen{}).Where("chair_id = ?", 1).Count(&openCount)
		assert.Zero(t, openCount)

		var hist model.OccupancyHistory
		require.NoError(t, testDB.First(&hist, "chair_id = ?", 1).Error)
		assert.Equal(t, int64(15), hist.Minutes)
		assert.Equal(t, int64(1500), hist.Fee)
		assert.Equal(t, bob.User.ID, hist.UserID)
	})

	t.Run("sweep removes old reservations", func(t *testing.T) {
		clk.Advance(3 * time.Hour)
		pruned, purged := a.Sweeper.SweepOnce(ctx)
		assert.Equal(t, 1, pruned)
		assert.Equal(t, int64(1), purged)

		var count int64
		testDB.Model(&model.Reservation{}).Count(&count)
		assert.Zero(t, count)
	})
}
