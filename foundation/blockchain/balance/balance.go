// Package balance maintains account balances in memory.
package balance

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ardanlabs/hashchain/foundation/blockchain/database"
)

// ErrInsufficientFunds is returned when applying a transaction drives an
// account below zero.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Sheet represents the data representation to maintain account balances.
type Sheet struct {
	sheet map[string]int64
	mu    sync.RWMutex
}

// NewSheet constructs a new, empty balance sheet for use.
func NewSheet() *Sheet {
	return &Sheet{
		sheet: make(map[string]int64),
	}
}

// Copy makes a copy of the current balance sheet but returns the raw data.
func (bs *Sheet) Copy() map[string]int64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	return maps.Clone(bs.sheet)
}

// Balance returns the balance for the account, zero if the account has
// never been seen.
func (bs *Sheet) Balance(account string) int64 {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	return bs.sheet[account]
}

// Accounts returns every account known to the sheet in sorted order.
func (bs *Sheet) Accounts() []string {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	return slices.Sorted(maps.Keys(bs.sheet))
}

// ApplyTransaction performs the business logic for applying a transaction
// to the balance sheet. A deposit only credits the target. A transfer credits
// the target and debits the source. Accounts start at zero the first time
// they are seen. The change is always recorded; an error is returned if any
// account involved ends up below zero.
func (bs *Sheet) ApplyTransaction(tx database.Tx) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	amount := int64(tx.Amount)

	if _, exists := bs.sheet[tx.Target]; !exists {
		bs.sheet[tx.Target] = 0
	}
	bs.sheet[tx.Target] += amount

	if !tx.IsDeposit() {
		if _, exists := bs.sheet[tx.Source]; !exists {
			bs.sheet[tx.Source] = 0
		}
		bs.sheet[tx.Source] -= amount

		if bal := bs.sheet[tx.Source]; bal < 0 {
			return fmt.Errorf("%s has balance %d after %s: %w", tx.Source, bal, tx, ErrInsufficientFunds)
		}
	}

	if bal := bs.sheet[tx.Target]; bal < 0 {
		return fmt.Errorf("%s has balance %d after %s: %w", tx.Target, bal, tx, ErrInsufficientFunds)
	}

	return nil
}
