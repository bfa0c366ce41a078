package models

import "errors"

// Every operation either completes fully or fails with one of these and
// leaves global state unchanged. None are retried automatically.
var (
	// ErrUnauthorized means a non-operator attempted an operator-only action.
	ErrUnauthorized = errors.New("caller is not the operator")

	// ErrRoundStillActive rejects opening a round before the current one ends.
	ErrRoundStillActive = errors.New("current round is still active")

	// ErrRoundNotActive rejects entry purchases outside an active round.
	ErrRoundNotActive = errors.New("no active round")

	// ErrRoundNotEnded rejects a draw before the round deadline has passed.
	ErrRoundNotEnded = errors.New("round has not ended")

	// ErrAlreadyDrawn rejects a second draw for the same round.
	ErrAlreadyDrawn = errors.New("round already drawn")

	// ErrNoPlayers rejects a draw when the ledger holds no entries.
	ErrNoPlayers = errors.New("no entries in the ledger")

	// ErrInvalidAmount rejects payments that are not a positive exact
	// multiple of the unit price.
	ErrInvalidAmount = errors.New("amount must be a positive multiple of the unit price")

	// ErrNoParticipants rejects a random draw over an empty pool.
	ErrNoParticipants = errors.New("participant count must be positive")

	// ErrTransferFailed means the payout could not be delivered; the draw
	// is rolled back as a unit.
	ErrTransferFailed = errors.New("prize transfer failed")
)
