package session

import "time"

// BilledMinutes rounds elapsed time up to whole minutes, at least one.
func BilledMinutes(start, at time.Time) int64 {
	elapsed := at.Sub(start)
	minutes := int64(elapsed / time.Minute)
	if elapsed%time.Minute > 0 {
		minutes++
	}
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// CalculateFee is ceil(elapsed minutes) * ratePerMinute. It never decreases as
// at moves forward.
func CalculateFee(start, at time.Time, ratePerMinute int64) int64 {
	return BilledMinutes(start, at) * ratePerMinute
}
