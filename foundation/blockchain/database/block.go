// Package database provides the transaction and block values that make up
// the chain, including the proof of work search and the canonical encoding
// used to compute block digests.
package database

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ardanlabs/hashchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/hashchain/foundation/blockchain/digest"
)

// ErrMiningExhausted is returned from MineBlock when the configured number of
// attempts is used up without finding an acceptable digest.
var ErrMiningExhausted = errors.New("mining exhausted, no solution found")

// progressEvery is the number of attempts between progress events.
const progressEvery = 1_000_000

// =============================================================================

// Block represents one entry in the chain. It holds the digest of its
// predecessor by value so it can be checked without walking the chain.
type Block struct {
	num    int
	tx     Tx
	prev   digest.Digest
	nonce  uint64
	digest digest.Digest
}

// NewBlock reconstructs a block from a known nonce. No search is performed,
// the digest is computed from the fields. The transaction must be valid so
// every amount hashed fits the 32 bit encoding.
func NewBlock(num int, tx Tx, prev digest.Digest, nonce uint64) (Block, error) {
	if err := tx.Validate(); err != nil {
		return Block{}, err
	}

	b := Block{
		num:   num,
		tx:    tx,
		prev:  prev,
		nonce: nonce,
	}
	b.digest = b.ComputeDigest()

	return b, nil
}

// MineOption configures the mining search.
type MineOption func(cfg *mineConfig)

type mineConfig struct {
	maxAttempts uint64
	evHandler   func(v string, args ...any)
}

// WithMaxAttempts bounds the search to n attempts. Zero means no bound.
func WithMaxAttempts(n uint64) MineOption {
	return func(cfg *mineConfig) {
		cfg.maxAttempts = n
	}
}

// WithEvHandler provides a function that receives mining events.
func WithEvHandler(ev func(v string, args ...any)) MineOption {
	return func(cfg *mineConfig) {
		if ev != nil {
			cfg.evHandler = ev
		}
	}
}

// MineBlock constructs a new Block and performs the work to find a nonce
// that produces a digest the predicate accepts. Starting at zero, the nonce
// is incremented until a solution is found, the context is cancelled or the
// attempts configured with WithMaxAttempts are used up.
func MineBlock(ctx context.Context, num int, tx Tx, prev digest.Digest, predicate difficulty.Predicate, options ...MineOption) (Block, error) {
	if err := tx.Validate(); err != nil {
		return Block{}, err
	}

	cfg := mineConfig{
		evHandler: func(v string, args ...any) {},
	}
	for _, option := range options {
		option(&cfg)
	}

	nb := Block{
		num:  num,
		tx:   tx,
		prev: prev,
	}

	if err := nb.performPOW(ctx, predicate, cfg); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid digest for the block.
// Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, predicate difficulty.Predicate, cfg mineConfig) error {
	ev := cfg.evHandler

	ev("database: MineBlock: MINING: started: blk[%d]: tx[%s]", b.num, b.tx)
	defer ev("database: MineBlock: MINING: completed: blk[%d]", b.num)

	var attempts uint64
	for b.nonce = 0; ; b.nonce++ {
		if cfg.maxAttempts > 0 && attempts == cfg.maxAttempts {
			ev("database: MineBlock: MINING: EXHAUSTED: attempts[%d]", attempts)
			return fmt.Errorf("blk[%d] after %d attempts: %w", b.num, attempts, ErrMiningExhausted)
		}

		attempts++
		if attempts%progressEvery == 0 {
			ev("database: MineBlock: MINING: attempts[%d]", attempts)
		}

		// Did we timeout trying to solve the problem.
		if ctx.Err() != nil {
			ev("database: MineBlock: MINING: CANCELLED")
			return ctx.Err()
		}

		// Hash the block and check if we have solved the puzzle.
		d := b.ComputeDigest()
		if !predicate.Accepts(d) {
			continue
		}

		b.digest = d

		ev("database: MineBlock: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.prev, d)
		ev("database: MineBlock: MINING: attempts[%d]", attempts)

		return nil
	}
}

// ComputeDigest recomputes the digest from the block's fields. It does not
// modify the block.
func (b Block) ComputeDigest() digest.Digest {
	return digest.Sum(b.encode())
}

// encode produces the canonical bytes hashed for a block:
// be32(num) | source | target | be32(amount) | prev digest | be64(nonce).
func (b Block) encode() []byte {
	tx := b.tx.Encode()
	prev := b.prev.Bytes()

	data := make([]byte, 0, 4+len(tx)+len(prev)+8)
	data = binary.BigEndian.AppendUint32(data, uint32(b.num))
	data = append(data, tx...)
	data = append(data, prev...)
	data = binary.BigEndian.AppendUint64(data, b.nonce)

	return data
}

// Num returns the zero based position of the block.
func (b Block) Num() int {
	return b.num
}

// Tx returns the transaction stored in the block.
func (b Block) Tx() Tx {
	return b.tx
}

// Nonce returns the nonce that solved the block.
func (b Block) Nonce() uint64 {
	return b.nonce
}

// PrevDigest returns the digest of the previous block.
func (b Block) PrevDigest() digest.Digest {
	return b.prev
}

// Digest returns the digest recorded for the block.
func (b Block) Digest() digest.Digest {
	return b.digest
}

// String implements the fmt.Stringer interface for diagnostics.
func (b Block) String() string {
	var tx string
	switch {
	case b.tx.IsDeposit():
		tx = fmt.Sprintf("Deposit (Target: %s, Amount: %d)", b.tx.Target, b.tx.Amount)
	default:
		tx = fmt.Sprintf("Transfer (Source: %s, Target: %s, Amount: %d)", b.tx.Source, b.tx.Target, b.tx.Amount)
	}

	return fmt.Sprintf("Block %d (Transaction: %s, Nonce: %d, prevHash: %s, hash: %s)", b.num, tx, b.nonce, b.prev, b.digest)
}

// =============================================================================

// BlockData represents what is written to an export file.
type BlockData struct {
	Num        int           `json:"num"`
	Source     string        `json:"source"`
	Target     string        `json:"target"`
	Amount     int           `json:"amount"`
	PrevDigest digest.Digest `json:"prev_digest"`
	Nonce      uint64        `json:"nonce"`
	Digest     digest.Digest `json:"digest"`
}

// NewBlockData constructs the value to serialize.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Num:        block.num,
		Source:     block.tx.Source,
		Target:     block.tx.Target,
		Amount:     block.tx.Amount,
		PrevDigest: block.prev,
		Nonce:      block.nonce,
		Digest:     block.digest,
	}
}

// ToBlock converts a BlockData into a Block. The recorded digest is kept as
// the block's digest so altered data is caught when the block is validated.
// When no digest was recorded, it is computed from the fields.
func ToBlock(data BlockData) (Block, error) {
	tx, err := NewTx(data.Source, data.Target, data.Amount)
	if err != nil {
		return Block{}, fmt.Errorf("blk[%d]: %w", data.Num, err)
	}

	if data.Digest.IsEmpty() {
		return NewBlock(data.Num, tx, data.PrevDigest, data.Nonce)
	}

	nb := Block{
		num:    data.Num,
		tx:     tx,
		prev:   data.PrevDigest,
		nonce:  data.Nonce,
		digest: data.Digest,
	}

	return nb, nil
}
