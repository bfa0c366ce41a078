package models

import "time"

// Round represents one timed cycle of ticket sales followed by at most one
// draw. The zero value is the uninitialized state: round number 0, never
// active, never drawn.
type Round struct {
	Number  uint64    `json:"number"`
	EndTime time.Time `json:"endTime"`
	Drawn   bool      `json:"drawn"`
}

// IsActive reports whether the round is open for ticket sales at the given
// time.
func (r *Round) IsActive(now time.Time) bool {
	return !r.EndTime.IsZero() && now.Before(r.EndTime)
}

// IsEnded reports whether the round was opened and its deadline has passed.
// The deadline itself counts as ended.
func (r *Round) IsEnded(now time.Time) bool {
	return !r.EndTime.IsZero() && !now.Before(r.EndTime)
}

// TimeRemaining returns the duration until the deadline, or zero once the
// round has ended or was never opened.
func (r *Round) TimeRemaining(now time.Time) time.Duration {
	if !r.IsActive(now) {
		return 0
	}
	return r.EndTime.Sub(now)
}

// DrawResult reports a completed draw: the round that was drawn, the
// selected winner and the prize paid out.
type DrawResult struct {
	Round  uint64 `json:"round"`
	Winner string `json:"winner"`
	Prize  int64  `json:"prize"`
}

// PrizeRecord stores the outcome of a single draw, linking a round number
// to its winner and the exact amount paid out. The zero value is the
// "never drawn" answer returned for unknown rounds.
type PrizeRecord struct {
	Winner string `json:"winner"`
	Prize  int64  `json:"prize"`
}
