package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDeclined      = errors.New("payment declined")
	ErrInvalidCharge = errors.New("invalid charge")
)

// Method is how the customer pays at the chair.
type Method string

const (
	MethodCard   Method = "card"
	MethodTouch  Method = "touch"
	MethodMobile Method = "mobile"
)

// Charge is a request to capture Amount for a finished session.
type Charge struct {
	ChairID  int64
	UserID   string
	Amount   int64
	Currency string
	Method   Method
}

// Capture is a successful capture.
type Capture struct {
	ID         string    `json:"id"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	Method     Method    `json:"method"`
	CapturedAt time.Time `json:"captured_at"`
}

// Gateway captures payments. Implementations must not report success unless
// the money was taken.
type Gateway interface {
	Capture(ctx context.Context, ch Charge) (Capture, error)
}

// Simulated is an in-process terminal that approves every valid charge after a
// short processing delay, unless told to decline.
type Simulated struct {
	delay time.Duration

	mu      sync.Mutex
	decline map[int64]bool
}

func NewSimulated(delay time.Duration) *Simulated {
	return &Simulated{delay: delay, decline: make(map[int64]bool)}
}

// DeclineChair makes charges for chairID fail until cleared.
func (s *Simulated) DeclineChair(chairID int64, decline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if decline {
		s.decline[chairID] = true
	} else {
		delete(s.decline, chairID)
	}
}

func (s *Simulated) Capture(ctx context.Context, ch Charge) (Capture, error) {
	if ch.Amount <= 0 || ch.Currency == "" {
		return Capture{}, fmt.Errorf("%w: amount %d %s", ErrInvalidCharge, ch.Amount, ch.Currency)
	}
	switch ch.Method {
	case MethodCard, MethodTouch, MethodMobile:
	default:
		return Capture{}, fmt.Errorf("%w: unsupported method %q", ErrInvalidCharge, ch.Method)
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Capture{}, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	declined := s.decline[ch.ChairID]
	s.mu.Unlock()
	if declined {
		log.Printf("payment for chair %d declined", ch.ChairID)
		return Capture{}, ErrDeclined
	}

	return Capture{
		ID:         "cap_" + uuid.NewString(),
		Amount:     ch.Amount,
		Currency:   ch.Currency,
		Method:     ch.Method,
		CapturedAt: time.Now().UTC(),
	}, nil
}
