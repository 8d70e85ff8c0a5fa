// Package difficulty provides the rules that decide if a digest solves the
// proof of work puzzle. The same rule is used to mine and to validate blocks.
package difficulty

import (
	"fmt"

	"github.com/ardanlabs/hashchain/foundation/blockchain/digest"
)

// Set of rule names understood by Parse.
const (
	RuleBytes = "bytes"
	RuleBits  = "bits"
)

// Predicate represents the behavior required to decide if a digest is
// acceptable for a block.
type Predicate interface {
	Accepts(d digest.Digest) bool
}

// Func adapts an ordinary function into a Predicate.
type Func func(d digest.Digest) bool

// Accepts implements the Predicate interface.
func (f Func) Accepts(d digest.Digest) bool {
	return f(d)
}

// =============================================================================

// ZeroBytes requires the first n bytes of a digest to be zero.
type ZeroBytes uint

// Accepts implements the Predicate interface.
func (n ZeroBytes) Accepts(d digest.Digest) bool {
	if d.Len() < int(n) {
		return false
	}

	for i := range int(n) {
		if b, _ := d.ByteAt(i); b != 0 {
			return false
		}
	}

	return true
}

// String implements the fmt.Stringer interface.
func (n ZeroBytes) String() string {
	return fmt.Sprintf("%d zero bytes", uint(n))
}

// ZeroBits requires the first n bits of a digest to be zero.
type ZeroBits uint

// Accepts implements the Predicate interface.
func (n ZeroBits) Accepts(d digest.Digest) bool {
	if d.Len()*8 < int(n) {
		return false
	}

	remaining := int(n)
	for i := 0; remaining > 0; i++ {
		b, _ := d.ByteAt(i)

		if remaining >= 8 {
			if b != 0 {
				return false
			}
			remaining -= 8
			continue
		}

		// Only the high bits of the last byte are checked.
		return b>>(8-remaining) == 0
	}

	return true
}

// String implements the fmt.Stringer interface.
func (n ZeroBits) String() string {
	return fmt.Sprintf("%d zero bits", uint(n))
}

// =============================================================================

// Parse constructs the predicate named by rule requiring n leading zeros.
func Parse(rule string, n uint) (Predicate, error) {
	switch rule {
	case RuleBytes:
		if n > digest.Size {
			return nil, fmt.Errorf("difficulty %d exceeds %d bytes", n, digest.Size)
		}
		return ZeroBytes(n), nil

	case RuleBits:
		if n > digest.Size*8 {
			return nil, fmt.Errorf("difficulty %d exceeds %d bits", n, digest.Size*8)
		}
		return ZeroBits(n), nil
	}

	return nil, fmt.Errorf("unknown difficulty rule %q", rule)
}
