package commands

import (
	"fmt"
	"io"

	"github.com/ardanlabs/hashchain/foundation/blockchain/chain"
)

// Transactions writes the transactions in chain order. When an account is
// specified, only the transactions it takes part in are written.
func Transactions(w io.Writer, ch *chain.Chain, acct string) error {
	for blk := range ch.Blocks() {
		tx := blk.Tx()
		if acct != "" && tx.Source != acct && tx.Target != acct {
			continue
		}

		from := tx.Source
		if tx.IsDeposit() {
			from = "(deposit)"
		}

		fmt.Fprintf(w, "Block: %d  From: %s  To: %s  Value: %d  Nonce: %d\n",
			blk.Num(), from, tx.Target, tx.Amount, blk.Nonce())
	}

	return nil
}
