package database

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ardanlabs/hashchain/foundation/validate"
)

// ErrInvalidTransaction is returned when a transaction is missing a target
// account or carries an amount that can't be recorded.
var ErrInvalidTransaction = errors.New("invalid transaction")

// =============================================================================

// Tx is the transactional information between two parties. A transaction
// without a source is a deposit that credits the target out of thin air.
type Tx struct {
	Source string `json:"source"`                                // Account being debited, empty for a deposit.
	Target string `json:"target" validate:"required"`            // Account receiving the value.
	Amount int    `json:"amount" validate:"gte=0,lte=2147483647"` // Value moved, encoded as 32 bits.
}

// NewTx constructs a new transaction.
func NewTx(source string, target string, amount int) (Tx, error) {
	tx := Tx{
		Source: source,
		Target: target,
		Amount: amount,
	}

	if err := tx.Validate(); err != nil {
		return Tx{}, err
	}

	return tx, nil
}

// NewDeposit constructs a transaction that credits the target account.
func NewDeposit(target string, amount int) (Tx, error) {
	return NewTx("", target, amount)
}

// Validate checks the transaction has a target and an amount that fits
// into the canonical encoding.
func (tx Tx) Validate() error {
	if err := validate.Check(tx); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}

	return nil
}

// IsDeposit reports whether the transaction has no source account.
func (tx Tx) IsDeposit() bool {
	return tx.Source == ""
}

// Encode returns the canonical bytes of the transaction that are part of the
// block digest: the source, the target and the amount as big endian 32 bits.
func (tx Tx) Encode() []byte {
	b := make([]byte, 0, len(tx.Source)+len(tx.Target)+4)
	b = append(b, tx.Source...)
	b = append(b, tx.Target...)
	b = binary.BigEndian.AppendUint32(b, uint32(tx.Amount))

	return b
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	if tx.IsDeposit() {
		return fmt.Sprintf("deposit of %d to %s", tx.Amount, tx.Target)
	}

	return fmt.Sprintf("transfer of %d from %s to %s", tx.Amount, tx.Source, tx.Target)
}
