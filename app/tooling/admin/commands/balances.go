package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/hashchain/foundation/blockchain/chain"
)

// Balances writes the balance of every participant, or of a single account
// when one is specified.
func Balances(w io.Writer, ch *chain.Chain, onlyAct string) error {
	if tail, err := ch.TailDigest(); err == nil {
		fmt.Fprintf(w, "LatestBlockHash: %s\n\n", tail)
	}

	if onlyAct != "" {
		fmt.Fprintf(w, "Account: %s  Balance: %d\n", onlyAct, ch.BalanceOf(onlyAct))
		return nil
	}

	for act := range ch.Participants() {
		fmt.Fprintf(w, "Account: %s  Balance: %d\n", act, ch.BalanceOf(act))
	}

	return nil
}
