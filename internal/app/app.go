package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	_ "time/tzdata"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chair-reservation-backend/config"
	"chair-reservation-backend/internal/api"
	"chair-reservation-backend/internal/auth"
	"chair-reservation-backend/internal/booking"
	"chair-reservation-backend/internal/clock"
	"chair-reservation-backend/internal/events"
	"chair-reservation-backend/internal/model"
	"chair-reservation-backend/internal/notification"
	"chair-reservation-backend/internal/payment"
	"chair-reservation-backend/internal/reservation"
	"chair-reservation-backend/internal/session"
	"chair-reservation-backend/internal/store"
	"chair-reservation-backend/internal/sweeper"
)

// App is the service graph. Every component gets its dependencies from here;
// nothing reaches for package-level state.
type App struct {
	Config       *config.Config
	Store        store.Store
	Clock        clock.Clock
	Reservations *reservation.Repository
	Sessions     *session.Machine
	Auth         *auth.Service
	Gateway      *payment.Simulated
	Booking      *booking.Orchestrator
	Notifier     *notification.WorkerPool
	Events       *events.Publisher
	Sweeper      *sweeper.Service
	Router       *gin.Engine
}

// Build wires the service on top of an open, migrated database and loads the
// persisted reservations and open sessions.
func Build(ctx context.Context, cfg *config.Config, gdb *gorm.DB, clk clock.Clock) (*App, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret must be set")
	}
	if clk == nil {
		clk = clock.Real{}
	}

	a := &App{Config: cfg, Clock: clk, Store: store.NewGormStore(gdb)}

	chairs := make([]model.Chair, 0, len(cfg.Booking.Chairs))
	for _, c := range cfg.Booking.Chairs {
		chairs = append(chairs, model.Chair{ID: c.ID, DisplayName: c.Name})
	}
	if err := a.Store.UpsertChairs(ctx, chairs); err != nil {
		return nil, fmt.Errorf("upsert chairs: %w", err)
	}

	a.Reservations = reservation.NewRepository(a.Store, clk)
	if err := a.Reservations.Load(ctx); err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	a.Sessions = session.NewMachine(chairs, cfg.Booking.RatePerMinute, clk, a.Store)
	if err := a.Sessions.Restore(ctx); err != nil {
		return nil, fmt.Errorf("restore sessions: %w", err)
	}

	a.Auth = auth.NewService(a.Store, cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute, cfg.Auth.BcryptCost, clk)
	a.Gateway = payment.NewSimulated(time.Duration(cfg.Booking.PaymentDelayMillis) * time.Millisecond)

	a.Booking = booking.New(a.Reservations, a.Sessions, a.Auth, a.Gateway, clk, booking.Options{
		AdvanceBooking: cfg.Booking.AdvanceBooking,
		CardLimit:      cfg.Booking.CardReservationLimit,
		Currency:       cfg.Booking.Currency,
	})

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		a.Notifier = notification.NewWorkerPool(cfg.WorkerPool.Size, gdb, webpushOptions)
		a.Booking.WithNotifier(a.Notifier)
	} else {
		log.Println("VAPID keys are not configured; push notifications are disabled")
	}

	if cfg.Events.AMQPURL != "" {
		pub, err := events.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			return nil, fmt.Errorf("events: %w", err)
		}
		a.Events = pub
		a.Booking.WithEvents(pub)
	}

	a.Sweeper = sweeper.NewService(cfg.Sweeper, a.Reservations, a.Store, clk)

	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		log.Printf("Warning: unknown timezone %q, using UTC: %v", cfg.Booking.Timezone, err)
		loc = time.UTC
	}
	handler := api.NewHandler(a.Store, a.Booking, a.Auth, webpushOptions, loc)
	a.Router = api.NewRouter(handler, a.Auth, cfg.Server)
	return a, nil
}

// Start runs the background workers until ctx is done.
func (a *App) Start(ctx context.Context) {
	if a.Notifier != nil {
		a.Notifier.Start(ctx)
	}
	go a.Sweeper.Run(ctx)
}

// Close releases connections the app opened itself.
func (a *App) Close() {
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}
}
