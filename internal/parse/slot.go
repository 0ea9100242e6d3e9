package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"chair-reservation-backend/internal/interval"
)

// ErrFormat marks input that could not be parsed.
var ErrFormat = errors.New("invalid format")

var (
	dateRe = regexp.MustCompile(`^\s*(\d{4})[-/](\d{1,2})[-/](\d{1,2})\s*$`)
	// Accepts "9:05", "09:05" and full-width colons from Japanese IME input.
	clockRe = regexp.MustCompile(`^\s*(\d{1,2})\s*[:：]\s*(\d{2})\s*$`)
)

// SlotInput is the raw date/time form used by the reservation editor.
type SlotInput struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Empty reports whether no field was supplied.
func (in SlotInput) Empty() bool {
	return in.Date == "" && in.StartTime == "" && in.EndTime == ""
}

// Slot converts editor input into an interval in loc. Start and end share the
// same calendar date, so an end at or before the start is rejected.
func Slot(in SlotInput, loc *time.Location) (interval.Interval, error) {
	y, mo, d, err := parseDate(in.Date)
	if err != nil {
		return interval.Interval{}, err
	}
	sh, sm, err := parseClock(in.StartTime)
	if err != nil {
		return interval.Interval{}, fmt.Errorf("start_time: %w", err)
	}
	eh, em, err := parseClock(in.EndTime)
	if err != nil {
		return interval.Interval{}, fmt.Errorf("end_time: %w", err)
	}

	start := time.Date(y, time.Month(mo), d, sh, sm, 0, 0, loc)
	end := time.Date(y, time.Month(mo), d, eh, em, 0, 0, loc)
	return interval.New(start.UTC(), end.UTC())
}

// Instant parses an RFC3339 timestamp and normalizes it to UTC.
func Instant(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q, use RFC3339", ErrFormat, raw)
	}
	return t.UTC(), nil
}

// Range parses an RFC3339 start/end pair into an interval.
func Range(start, end string) (interval.Interval, error) {
	s, err := Instant(start)
	if err != nil {
		return interval.Interval{}, err
	}
	e, err := Instant(end)
	if err != nil {
		return interval.Interval{}, err
	}
	return interval.New(s, e)
}

func parseDate(raw string) (int, int, int, error) {
	m := dateRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("%w: date %q, use YYYY-MM-DD", ErrFormat, raw)
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return 0, 0, 0, fmt.Errorf("%w: date %q", ErrFormat, raw)
	}
	// time.Date normalizes Feb 30 into March; reject instead.
	if time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC).Day() != d {
		return 0, 0, 0, fmt.Errorf("%w: date %q", ErrFormat, raw)
	}
	return y, mo, d, nil
}

func parseClock(raw string) (int, int, error) {
	m := clockRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: time %q, use HH:MM", ErrFormat, raw)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	if h > 23 || mi > 59 {
		return 0, 0, fmt.Errorf("%w: time %q", ErrFormat, raw)
	}
	return h, mi, nil
}
