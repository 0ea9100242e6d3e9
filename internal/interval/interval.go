package interval

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalid is returned when an interval does not end strictly after it starts.
var ErrInvalid = errors.New("interval end must be after start")

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New builds an Interval, rejecting empty or inverted ranges.
func New(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, fmt.Errorf("%w: [%s, %s)", ErrInvalid, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether a and b share any instant. Touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Contains reports whether t lies in [i.Start, i.End).
func Contains(i Interval, t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

func (i Interval) Overlaps(o Interval) bool { return Overlaps(i, o) }

func (i Interval) Contains(t time.Time) bool { return Contains(i, t) }

func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }
