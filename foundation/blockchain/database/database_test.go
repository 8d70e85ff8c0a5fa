package database_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ardanlabs/hashchain/foundation/blockchain/database"
	"github.com/ardanlabs/hashchain/foundation/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func TestNewTx(t *testing.T) {
	type table struct {
		name    string
		source  string
		target  string
		amount  int
		valid   bool
		deposit bool
	}

	tt := []table{
		{name: "transfer", source: "alice", target: "bob", amount: 30, valid: true},
		{name: "deposit", source: "", target: "alice", amount: 100, valid: true, deposit: true},
		{name: "zero", source: "alice", target: "bob", amount: 0, valid: true},
		{name: "max", source: "alice", target: "bob", amount: 2147483647, valid: true},
		{name: "no-target", source: "alice", target: "", amount: 10, valid: false},
		{name: "negative", source: "alice", target: "bob", amount: -1, valid: false},
		{name: "too-large", source: "alice", target: "bob", amount: 2147483648, valid: false},
	}

	t.Log("Given the need to construct transactions.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s transaction.", testID, tst.name)
			{
				f := func(t *testing.T) {
					tx, err := database.NewTx(tst.source, tst.target, tst.amount)
					if !tst.valid {
						if !errors.Is(err, database.ErrInvalidTransaction) {
							t.Fatalf("\t%s\tTest %d:\tShould reject the transaction: %v", failed, testID, err)
						}
						if !validate.IsFieldErrors(err) {
							t.Fatalf("\t%s\tTest %d:\tShould report the failing fields: %v", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould reject the transaction.", success, testID)
						return
					}

					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould construct the transaction: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould construct the transaction.", success, testID)

					if tx.IsDeposit() != tst.deposit {
						t.Fatalf("\t%s\tTest %d:\tShould report deposit %v.", failed, testID, tst.deposit)
					}
					t.Logf("\t%s\tTest %d:\tShould report deposit %v.", success, testID, tst.deposit)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestTxEncode(t *testing.T) {
	t.Log("Given the need to encode transactions for hashing.")
	{
		tx, err := database.NewTx("al", "bo", 258)
		if err != nil {
			t.Fatalf("\t%s\tShould construct the transaction: %v", failed, err)
		}

		exp := []byte{'a', 'l', 'b', 'o', 0x00, 0x00, 0x01, 0x02}
		if got := tx.Encode(); !bytes.Equal(got, exp) {
			t.Fatalf("\t%s\tShould encode source, target and be32 amount: got %X, exp %X", failed, got, exp)
		}
		t.Logf("\t%s\tShould encode source, target and be32 amount.", success)

		dep, _ := database.NewDeposit("bo", 1)
		exp = []byte{'b', 'o', 0x00, 0x00, 0x00, 0x01}
		if got := dep.Encode(); !bytes.Equal(got, exp) {
			t.Fatalf("\t%s\tShould encode an empty source for deposits: got %X, exp %X", failed, got, exp)
		}
		t.Logf("\t%s\tShould encode an empty source for deposits.", success)
	}
}
