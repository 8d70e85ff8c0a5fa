// Package digest provides the fixed length hash value used to identify blocks
// and bind each block to its predecessor.
package digest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Size is the number of bytes in a digest produced by Sum.
const Size = sha256.Size

// ErrIndexOutOfRange is returned when a byte is requested outside of the
// digest's bounds.
var ErrIndexOutOfRange = errors.New("index out of range")

// Digest represents an immutable sequence of hash bytes. The zero value is the
// empty digest, which the chain uses as the previous digest of the genesis block.
type Digest struct {
	data string
}

// New constructs a digest from a copy of the specified bytes.
func New(b []byte) Digest {
	return Digest{data: string(b)}
}

// Empty returns the zero length digest that marks the genesis block.
func Empty() Digest {
	return Digest{}
}

// Sum hashes the data with SHA-256 and returns the result as a digest.
func Sum(data []byte) Digest {
	sum := sha256.Sum256(data)
	return New(sum[:])
}

// Parse converts a hex-encoded string into a digest. Upper and lower case
// digits are accepted, with or without a 0x prefix. An empty string is the
// empty digest.
func Parse(s string) (Digest, error) {
	if s == "" {
		return Empty(), nil
	}

	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}

	b, err := hexutil.Decode(s)
	if err != nil {
		return Digest{}, fmt.Errorf("parsing digest %q: %w", s, err)
	}

	return New(b), nil
}

// Len returns the number of bytes in the digest.
func (d Digest) Len() int {
	return len(d.data)
}

// IsEmpty reports whether this is the empty digest.
func (d Digest) IsEmpty() bool {
	return len(d.data) == 0
}

// ByteAt returns the byte at index i.
func (d Digest) ByteAt(i int) (byte, error) {
	if i < 0 || i >= len(d.data) {
		return 0, fmt.Errorf("byte %d of %d: %w", i, len(d.data), ErrIndexOutOfRange)
	}

	return d.data[i], nil
}

// Bytes returns a copy of the bytes in the digest.
func (d Digest) Bytes() []byte {
	return []byte(d.data)
}

// Equal reports whether both digests hold the same bytes.
func (d Digest) Equal(other Digest) bool {
	return d.data == other.data
}

// Compare orders digests by their byte content.
func (d Digest) Compare(other Digest) int {
	return bytes.Compare([]byte(d.data), []byte(other.data))
}

// String implements the fmt.Stringer interface. The digest is rendered as
// uppercase hex with no separators.
func (d Digest) String() string {
	return strings.ToUpper(hex.EncodeToString([]byte(d.data)))
}

// MarshalText implements the encoding.TextMarshaler interface.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (d *Digest) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}

	*d = v
	return nil
}
