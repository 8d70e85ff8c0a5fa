package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/hashchain/foundation/blockchain/chain"
)

// Verify checks every invariant of the chain and reports the first one that
// fails.
func Verify(w io.Writer, ch *chain.Chain) error {
	fmt.Fprintf(w, "Blocks: %d  Rule: %v\n\n", ch.Size(), ch.Predicate())

	if err := ch.Check(); err != nil {
		return err
	}

	if tail, err := ch.TailDigest(); err == nil {
		fmt.Fprintf(w, "LatestBlockHash: %s\n", tail)
	}
	fmt.Fprintln(w, "The blockchain checks out.")

	return nil
}
