package services

import (
	"fmt"
	"sync"
)

// Treasury moves funds out of escrow to a winner. The implementation is an
// external capability and must be treated as untrusted: it may fail, and it
// may call back into the round service while the transfer is in flight.
type Treasury interface {
	Transfer(identity string, amount int64) error
}

// AccountBook is an in-process Treasury keeping a running payout balance per
// identity. Identities on the reject list refuse transfers, which models a
// recipient that cannot accept funds.
type AccountBook struct {
	mu       sync.Mutex
	balances map[string]int64
	rejected map[string]bool
}

// NewAccountBook creates an empty AccountBook.
func NewAccountBook() *AccountBook {
	return &AccountBook{
		balances: make(map[string]int64),
		rejected: make(map[string]bool),
	}
}

// Transfer credits the identity with the given amount.
func (b *AccountBook) Transfer(identity string, amount int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rejected[identity] {
		return fmt.Errorf("recipient %s refuses transfers", identity)
	}
	b.balances[identity] += amount
	return nil
}

// Balance returns the total amount paid out to the identity so far.
func (b *AccountBook) Balance(identity string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[identity]
}

// Reject makes all future transfers to the identity fail.
func (b *AccountBook) Reject(identity string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejected[identity] = true
}

// Accept removes the identity from the reject list.
func (b *AccountBook) Accept(identity string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.rejected, identity)
}
