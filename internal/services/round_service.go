package services

import (
	"fmt"
	"sync"
	"time"

	"lottopot/internal/models"
	"lottopot/internal/rng"

	"github.com/google/logger"
)

// RoundService owns the single communal pot: the current round, its entry
// ledger, the escrow balance and the per-round prize history. One mutex
// serializes every operation, so each runs as an indivisible unit against
// the shared state.
//
// The one exception is the payout transfer in PickWinner, which runs
// outside the lock after all state has been committed. The transfer hands
// control to untrusted code, and committing first guarantees that a
// reentrant call observes a round already drawn and an empty ledger.
type RoundService struct {
	mu sync.Mutex

	unitPrice int64
	duration  time.Duration
	operator  string

	now      func() time.Time
	random   rng.Source
	treasury Treasury
	notify   Notifier

	round   models.Round
	entries []string
	escrow  int64
	history map[uint64]models.PrizeRecord
}

// NewRoundService creates a RoundService. unitPrice and duration are fixed
// for the lifetime of the service. A nil clock defaults to time.Now.
func NewRoundService(unitPrice int64, duration time.Duration, operator string,
	clock func() time.Time, random rng.Source, treasury Treasury, notify Notifier) *RoundService {
	if clock == nil {
		clock = time.Now
	}
	return &RoundService{
		unitPrice: unitPrice,
		duration:  duration,
		operator:  operator,
		now:       clock,
		random:    random,
		treasury:  treasury,
		notify:    notify,
		history:   make(map[uint64]models.PrizeRecord),
	}
}

// OpenRound starts the next round. Only the operator may open rounds, and
// only once the previous round's deadline has passed. The entry ledger is
// wiped and the deadline set to now + the configured duration.
func (s *RoundService) OpenRound(caller string) (models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if caller != s.operator {
		return models.Round{}, models.ErrUnauthorized
	}
	now := s.now()
	if s.round.IsActive(now) {
		return models.Round{}, models.ErrRoundStillActive
	}

	s.round = models.Round{
		Number:  s.round.Number + 1,
		EndTime: now.Add(s.duration),
	}
	s.entries = nil
	s.notify.RoundStarted(s.round.Number, s.round.EndTime)
	return s.round, nil
}

// BuyEntries accepts a payment and appends one ledger entry per unit price
// paid. The amount must be a positive exact multiple of the unit price;
// anything else is rejected whole, with no partial acceptance and no
// refund of remainders.
func (s *RoundService) BuyEntries(caller string, amount int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.round.IsActive(s.now()) {
		return 0, models.ErrRoundNotActive
	}
	if amount < s.unitPrice || amount%s.unitPrice != 0 {
		return 0, models.ErrInvalidAmount
	}

	count := int(amount / s.unitPrice)
	for i := 0; i < count; i++ {
		s.entries = append(s.entries, caller)
	}
	s.escrow += amount
	s.notify.EntriesPurchased(caller, count)
	return count, nil
}

// Deposit accepts funds into escrow without recording any entries. This is
// the unsolicited-payment path: it enlarges the prize pool without granting
// chances, which is accepted on purpose rather than bounced.
func (s *RoundService) Deposit(amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount <= 0 {
		return models.ErrInvalidAmount
	}
	s.escrow += amount
	return nil
}

// PickWinner draws the winner for the ended round and pays out the entire
// escrow balance. Callable by anyone, but succeeds at most once per round.
//
// All state changes (drawn flag, history record, ledger clear, escrow
// drain) are committed before the transfer is attempted. If the transfer
// fails, the committed state is restored and the whole draw reports
// ErrTransferFailed with no lasting effect.
func (s *RoundService) PickWinner(caller string) (models.DrawResult, error) {
	s.mu.Lock()

	now := s.now()
	if !s.round.IsEnded(now) {
		s.mu.Unlock()
		return models.DrawResult{}, models.ErrRoundNotEnded
	}
	if s.round.Drawn {
		s.mu.Unlock()
		return models.DrawResult{}, models.ErrAlreadyDrawn
	}
	if len(s.entries) == 0 {
		s.mu.Unlock()
		return models.DrawResult{}, models.ErrNoPlayers
	}

	index, err := s.random.Draw(caller, len(s.entries))
	if err != nil {
		s.mu.Unlock()
		return models.DrawResult{}, err
	}

	result := models.DrawResult{
		Round:  s.round.Number,
		Winner: s.entries[index],
		Prize:  s.escrow,
	}
	ledger := s.entries

	s.round.Drawn = true
	s.history[result.Round] = models.PrizeRecord{Winner: result.Winner, Prize: result.Prize}
	s.entries = nil
	s.escrow = 0
	s.notify.RoundReset(result.Round)
	s.mu.Unlock()

	if err := s.treasury.Transfer(result.Winner, result.Prize); err != nil {
		s.undoDraw(result, ledger)
		return models.DrawResult{}, fmt.Errorf("%w: %v", models.ErrTransferFailed, err)
	}

	s.notify.WinnerSelected(result.Round, result.Winner, result.Prize)
	return result, nil
}

// undoDraw reverses the committed draw state after a failed transfer. The
// prize returns to escrow and the history record is removed
// unconditionally; the drawn flag and the ledger are restored only while
// the drawn round is still the current one. If the operator opened a new
// round during the transfer window, that round keeps its clean ledger, the
// failed round stays retired, and the stranded prize is left in the pot.
func (s *RoundService) undoDraw(result models.DrawResult, ledger []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.history, result.Round)
	s.escrow += result.Prize

	if s.round.Number == result.Round && s.round.Drawn {
		s.round.Drawn = false
		s.entries = ledger
		return
	}
	logger.Warningf("round %d payout of %d failed after round %d opened; prize stays in escrow",
		result.Round, result.Prize, s.round.Number)
}

// CurrentRound returns a copy of the current round state.
func (s *RoundService) CurrentRound() models.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// IsActive reports whether a round is currently open for ticket sales.
func (s *RoundService) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round.IsActive(s.now())
}

// TimeRemaining returns the time until the current round's deadline, or
// zero when no round is active.
func (s *RoundService) TimeRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round.TimeRemaining(s.now())
}

// EntryCount returns the number of entries in the current round's ledger.
func (s *RoundService) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Entries returns an ordered copy of the current ledger. The result grows
// with every entry sold, so callers should prefer EntryCount when they only
// need the size.
func (s *RoundService) Entries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]string, len(s.entries))
	copy(snapshot, s.entries)
	return snapshot
}

// EscrowBalance returns the total undistributed funds held by the service.
func (s *RoundService) EscrowBalance() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.escrow
}

// Result returns the recorded winner and prize for a round number. The
// second return value is false when the round was never drawn or does not
// exist.
func (s *RoundService) Result(roundNumber uint64) (models.PrizeRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.history[roundNumber]
	return record, ok
}
