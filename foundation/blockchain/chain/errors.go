package chain

import (
	"errors"
	"fmt"
)

// Set of sentinel errors callers can match with errors.Is.
var (
	ErrInvalidBlock   = errors.New("invalid block")
	ErrChainIntegrity = errors.New("chain integrity violated")
	ErrEmptyChain     = errors.New("chain is empty")
)

// Reason names the append check a block failed.
type Reason string

// Set of reasons a block can be refused by Append.
const (
	ReasonTransaction Reason = "transaction" // The transaction fails validation.
	ReasonDifficulty  Reason = "difficulty"  // The predicate rejected the digest.
	ReasonTampered    Reason = "tampered"    // The digest doesn't match the fields.
	ReasonLinkage     Reason = "linkage"     // The previous digest isn't the tail.
	ReasonPosition    Reason = "position"    // The number isn't the chain length.
)

// InvalidBlockError represents a block refused by Append.
type InvalidBlockError struct {
	Num    int
	Reason Reason
	Err    error
}

// Error implements the error interface.
func (ibe *InvalidBlockError) Error() string {
	return fmt.Sprintf("blk[%d]: %s: %s: %s", ibe.Num, ErrInvalidBlock, ibe.Reason, ibe.Err)
}

// Is makes the error match ErrInvalidBlock.
func (ibe *InvalidBlockError) Is(target error) bool {
	return target == ErrInvalidBlock
}

// Unwrap returns the underlying error.
func (ibe *InvalidBlockError) Unwrap() error {
	return ibe.Err
}

// =============================================================================

// Violation names the first invariant a chain failed.
type Violation string

// Set of violations Check can report, in the order they are checked for
// each block.
const (
	ViolationLinkage     Violation = "linkage"
	ViolationPosition    Violation = "position"
	ViolationTransaction Violation = "transaction"
	ViolationDigest      Violation = "digest"
	ViolationDifficulty  Violation = "difficulty"
	ViolationInsolvent   Violation = "insolvent"
)

// IntegrityError represents the first invariant violation found by Check.
type IntegrityError struct {
	Num       int
	Violation Violation
	Err       error
}

// Error implements the error interface.
func (ie *IntegrityError) Error() string {
	return fmt.Sprintf("blk[%d]: %s: %s: %s", ie.Num, ErrChainIntegrity, ie.Violation, ie.Err)
}

// Is makes the error match ErrChainIntegrity.
func (ie *IntegrityError) Is(target error) bool {
	return target == ErrChainIntegrity
}

// Unwrap returns the underlying error.
func (ie *IntegrityError) Unwrap() error {
	return ie.Err
}
