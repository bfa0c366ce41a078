package services

import (
	"time"

	"github.com/google/logger"
)

// Notifier receives the observable side effects of round operations.
// Notifications are advisory; they are not rolled back with a failed draw.
// They fire in commit order, with one exception: WinnerSelected fires only
// once the payout has completed, so it can trail the RoundStarted of a
// round opened while the transfer was in flight.
type Notifier interface {
	RoundStarted(number uint64, endTime time.Time)
	EntriesPurchased(identity string, count int)
	RoundReset(number uint64)
	WinnerSelected(number uint64, winner string, prize int64)
}

// LogNotifier writes notifications to the process log.
type LogNotifier struct{}

func (LogNotifier) RoundStarted(number uint64, endTime time.Time) {
	logger.Infof("round %d started, ends at %s", number, endTime.Format(time.RFC3339))
}

func (LogNotifier) EntriesPurchased(identity string, count int) {
	logger.Infof("%s purchased %d entries", identity, count)
}

func (LogNotifier) RoundReset(number uint64) {
	logger.Infof("round %d ledger cleared", number)
}

func (LogNotifier) WinnerSelected(number uint64, winner string, prize int64) {
	logger.Infof("round %d winner: %s, prize: %d", number, winner, prize)
}
