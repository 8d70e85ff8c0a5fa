// Package chain maintains the ordered sequence of blocks that make up the
// proof of work hash chain, and replays it to produce balances and to verify
// its integrity.
package chain

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/ardanlabs/hashchain/foundation/blockchain/balance"
	"github.com/ardanlabs/hashchain/foundation/blockchain/database"
	"github.com/ardanlabs/hashchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/hashchain/foundation/blockchain/digest"
)

// Config represents the optional settings for a chain.
type Config struct {
	MaxAttempts uint64                      // Bound on the nonce search, zero for no bound.
	EvHandler   func(v string, args ...any) // Receives mining and validation events.
}

// Chain owns the blocks of a hash chain. Blocks are only added with Append
// and only removed with RemoveLast. The previous and next block of any block
// are its neighbors in the sequence.
type Chain struct {
	mu sync.RWMutex

	predicate   difficulty.Predicate
	maxAttempts uint64
	evHandler   func(v string, args ...any)

	blocks []database.Block
}

// New constructs an empty chain that mines and validates blocks with the
// specified predicate for its entire lifetime.
func New(predicate difficulty.Predicate, cfg Config) *Chain {
	ev := cfg.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	return &Chain{
		predicate:   predicate,
		maxAttempts: cfg.MaxAttempts,
		evHandler:   ev,
	}
}

// FromBlocks constructs a chain holding the specified blocks as is. None of
// the Append checks are performed, which allows a chain read from an outside
// source to be inspected with Check.
func FromBlocks(predicate difficulty.Predicate, cfg Config, blocks []database.Block) *Chain {
	c := New(predicate, cfg)
	c.blocks = slices.Clone(blocks)

	return c
}

// Predicate returns the difficulty predicate used by the chain.
func (c *Chain) Predicate() difficulty.Predicate {
	return c.predicate
}

// Mine constructs a block for the transaction that would fit at the end of
// the chain. The block is not added to the chain. Any change to the chain
// before the block is appended will cause Append to refuse it.
func (c *Chain) Mine(ctx context.Context, tx database.Tx) (database.Block, error) {
	c.mu.RLock()
	num := len(c.blocks)
	prev := c.tailDigest()
	c.mu.RUnlock()

	return database.MineBlock(ctx, num, tx, prev, c.predicate,
		database.WithMaxAttempts(c.maxAttempts),
		database.WithEvHandler(c.evHandler),
	)
}

// Append adds the block to the end of the chain. The block is refused with
// an InvalidBlockError if its transaction isn't valid, if the predicate
// doesn't accept its digest, if the digest doesn't match its contents, if its
// previous digest isn't the digest of the current last block or if its number
// isn't the next position.
func (c *Chain) Append(block database.Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ev := c.evHandler
	num := block.Num()

	ev("chain: Append: validate: blk[%d]: check: transaction is valid", num)

	if err := block.Tx().Validate(); err != nil {
		return &InvalidBlockError{
			Num:    num,
			Reason: ReasonTransaction,
			Err:    err,
		}
	}

	ev("chain: Append: validate: blk[%d]: check: block hash has been solved", num)

	if !c.predicate.Accepts(block.Digest()) {
		return &InvalidBlockError{
			Num:    num,
			Reason: ReasonDifficulty,
			Err:    fmt.Errorf("digest %s is not accepted", block.Digest()),
		}
	}

	ev("chain: Append: validate: blk[%d]: check: block hash matches block contents", num)

	if exp := block.ComputeDigest(); !exp.Equal(block.Digest()) {
		return &InvalidBlockError{
			Num:    num,
			Reason: ReasonTampered,
			Err:    fmt.Errorf("digest doesn't match contents, got %s, exp %s", block.Digest(), exp),
		}
	}

	ev("chain: Append: validate: blk[%d]: check: parent hash does match parent block", num)

	if tail := c.tailDigest(); !block.PrevDigest().Equal(tail) {
		return &InvalidBlockError{
			Num:    num,
			Reason: ReasonLinkage,
			Err:    fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", block.PrevDigest(), tail),
		}
	}

	ev("chain: Append: validate: blk[%d]: check: block number is the next position", num)

	if num != len(c.blocks) {
		return &InvalidBlockError{
			Num:    num,
			Reason: ReasonPosition,
			Err:    fmt.Errorf("block number %d, exp %d", num, len(c.blocks)),
		}
	}

	c.blocks = append(c.blocks, block)

	ev("chain: Append: blk[%d]: appended: hash[%s]", num, block.Digest())

	return nil
}

// RemoveLast removes the last block of the chain. The first block is never
// removed; false is returned when the chain holds one block or less.
func (c *Chain) RemoveLast() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) <= 1 {
		return false
	}

	last := len(c.blocks) - 1
	c.blocks[last] = database.Block{}
	c.blocks = c.blocks[:last]

	c.evHandler("chain: RemoveLast: blk[%d]: removed", last)

	return true
}

// Size returns the number of blocks in the chain.
func (c *Chain) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.blocks)
}

// Tail returns the last block of the chain.
func (c *Chain) Tail() (database.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.blocks) == 0 {
		return database.Block{}, ErrEmptyChain
	}

	return c.blocks[len(c.blocks)-1], nil
}

// TailDigest returns the digest of the last block of the chain.
func (c *Chain) TailDigest() (digest.Digest, error) {
	blk, err := c.Tail()
	if err != nil {
		return digest.Digest{}, err
	}

	return blk.Digest(), nil
}

// Block returns the block at the specified position.
func (c *Chain) Block(num int) (database.Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if num < 0 || num >= len(c.blocks) {
		return database.Block{}, fmt.Errorf("block %d not found, chain has %d blocks", num, len(c.blocks))
	}

	return c.blocks[num], nil
}

// Check walks the chain once and returns an IntegrityError for the first
// block that isn't linked to its predecessor, whose number isn't its position,
// whose transaction isn't valid, whose digest doesn't match its contents,
// whose digest isn't accepted by the predicate or whose transaction leaves an
// account with a negative balance.
func (c *Chain) Check() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sheet := balance.NewSheet()
	prev := digest.Empty()

	for i, block := range c.blocks {
		if !block.PrevDigest().Equal(prev) {
			return &IntegrityError{
				Num:       i,
				Violation: ViolationLinkage,
				Err:       fmt.Errorf("previous hash %s, exp %s", block.PrevDigest(), prev),
			}
		}

		if block.Num() != i {
			return &IntegrityError{
				Num:       i,
				Violation: ViolationPosition,
				Err:       fmt.Errorf("block number %d, exp %d", block.Num(), i),
			}
		}

		if err := block.Tx().Validate(); err != nil {
			return &IntegrityError{
				Num:       i,
				Violation: ViolationTransaction,
				Err:       err,
			}
		}

		if exp := block.ComputeDigest(); !exp.Equal(block.Digest()) {
			return &IntegrityError{
				Num:       i,
				Violation: ViolationDigest,
				Err:       fmt.Errorf("hash %s, exp %s", block.Digest(), exp),
			}
		}

		if !c.predicate.Accepts(block.Digest()) {
			return &IntegrityError{
				Num:       i,
				Violation: ViolationDifficulty,
				Err:       fmt.Errorf("hash %s is not accepted", block.Digest()),
			}
		}

		if err := sheet.ApplyTransaction(block.Tx()); err != nil {
			return &IntegrityError{
				Num:       i,
				Violation: ViolationInsolvent,
				Err:       err,
			}
		}

		prev = block.Digest()
	}

	return nil
}

// IsCorrect reports whether Check finds no violation.
func (c *Chain) IsCorrect() bool {
	return c.Check() == nil
}

// Balances replays every transaction in block order and returns the
// resulting balance of every account.
func (c *Chain) Balances() map[string]int64 {
	return c.replay().Copy()
}

// BalanceOf returns the balance of the account, zero if the account never
// appears in the chain.
func (c *Chain) BalanceOf(account string) int64 {
	return c.replay().Balance(account)
}

// Participants returns every account that appears as a source or target.
// The accounts are captured when Participants is called; call it again after
// the chain changes.
func (c *Chain) Participants() iter.Seq[string] {
	return slices.Values(c.replay().Accounts())
}

// Blocks returns the blocks from first to last. Every range over the
// sequence starts again at the first block.
func (c *Chain) Blocks() iter.Seq[database.Block] {
	return func(yield func(database.Block) bool) {
		for _, block := range c.copyBlocks() {
			if !yield(block) {
				return
			}
		}
	}
}

// Transactions returns the transaction of every block from first to last.
func (c *Chain) Transactions() iter.Seq[database.Tx] {
	return func(yield func(database.Tx) bool) {
		for block := range c.Blocks() {
			if !yield(block.Tx()) {
				return
			}
		}
	}
}

// =============================================================================

// tailDigest returns the digest a new block must link to. The caller must
// hold the lock.
func (c *Chain) tailDigest() digest.Digest {
	if len(c.blocks) == 0 {
		return digest.Empty()
	}

	return c.blocks[len(c.blocks)-1].Digest()
}

// copyBlocks makes a copy of the current blocks.
func (c *Chain) copyBlocks() []database.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.blocks)
}

// replay applies every transaction to a new balance sheet. Overdrafts are
// recorded as negative balances; Check reports them.
func (c *Chain) replay() *balance.Sheet {
	sheet := balance.NewSheet()
	for tx := range c.Transactions() {
		sheet.ApplyTransaction(tx)
	}

	return sheet
}
