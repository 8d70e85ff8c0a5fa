package commands_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardanlabs/hashchain/app/services/console/commands"
	"github.com/ardanlabs/hashchain/foundation/blockchain/chain"
	"github.com/ardanlabs/hashchain/foundation/blockchain/database"
	"github.com/ardanlabs/hashchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/hashchain/foundation/blockchain/digest"
	"github.com/ardanlabs/hashchain/foundation/events"
	"github.com/pterm/pterm"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func newConsole(predicate difficulty.Predicate, maxAttempts uint64) (*commands.Console, *bytes.Buffer) {
	pterm.DisableStyling()

	var out bytes.Buffer
	con := commands.New(commands.Config{
		Log:       zap.NewNop().Sugar(),
		Out:       &out,
		Predicate: predicate,
		Chain:     chain.Config{MaxAttempts: maxAttempts},
		TraceID:   "00000000-0000-0000-0000-000000000000",
	})

	return con, &out
}

// nonceFor mines the transaction against the console's chain and returns the
// nonce the append command needs.
func nonceFor(t *testing.T, con *commands.Console, tx database.Tx) uint64 {
	t.Helper()

	blk, err := con.Chain().Mine(context.Background(), tx)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to mine %s: %v", failed, tx, err)
	}

	return blk.Nonce()
}

func exec(t *testing.T, con *commands.Console, line string) {
	t.Helper()

	if _, err := con.Execute(context.Background(), line); err != nil {
		t.Fatalf("\t%s\tShould be able to run %q: %v", failed, line, err)
	}
	t.Logf("\t%s\tShould be able to run %q.", success, line)
}

func TestSession(t *testing.T) {
	t.Log("Given the need to drive a chain through the console.")
	{
		con, out := newConsole(difficulty.ZeroBytes(1), 0)

		exec(t, con, "mine alice 100")
		if !strings.Contains(out.String(), "Nonce:") {
			t.Fatalf("\t%s\tShould print the nonce: %q", failed, out.String())
		}
		if con.Chain().Size() != 0 {
			t.Fatalf("\t%s\tShould not add the mined block.", failed)
		}
		t.Logf("\t%s\tShould print the nonce without changing the chain.", success)

		nonce := nonceFor(t, con, database.Tx{Target: "alice", Amount: 100})
		exec(t, con, fmt.Sprintf("append alice 100 %d", nonce))

		nonce = nonceFor(t, con, database.Tx{Source: "alice", Target: "bob", Amount: 30})
		exec(t, con, fmt.Sprintf("APPEND alice bob 30 %d", nonce))

		if con.Chain().Size() != 2 {
			t.Fatalf("\t%s\tShould hold 2 blocks: got %d", failed, con.Chain().Size())
		}
		t.Logf("\t%s\tShould hold 2 blocks.", success)

		out.Reset()
		exec(t, con, "balance alice")
		if !strings.Contains(out.String(), "alice: 70") {
			t.Fatalf("\t%s\tShould report alice's balance: %q", failed, out.String())
		}
		t.Logf("\t%s\tShould report alice's balance.", success)

		out.Reset()
		exec(t, con, "balance nobody")
		if !strings.Contains(out.String(), "nobody: 0") {
			t.Fatalf("\t%s\tShould report zero for an unknown user: %q", failed, out.String())
		}
		t.Logf("\t%s\tShould report zero for an unknown user.", success)

		out.Reset()
		exec(t, con, "users")
		if !strings.Contains(out.String(), "alice") || !strings.Contains(out.String(), "bob") {
			t.Fatalf("\t%s\tShould list every user: %q", failed, out.String())
		}
		t.Logf("\t%s\tShould list every user.", success)

		out.Reset()
		exec(t, con, "transactions")
		if !strings.Contains(out.String(), "(deposit)") {
			t.Fatalf("\t%s\tShould list the deposit: %q", failed, out.String())
		}
		t.Logf("\t%s\tShould list the deposit.", success)

		out.Reset()
		exec(t, con, "blocks")
		if !strings.Contains(out.String(), "Blocks 2") || !strings.Contains(out.String(), "Transfer") {
			t.Fatalf("\t%s\tShould print the blocks: %q", failed, out.String())
		}
		t.Logf("\t%s\tShould print the blocks.", success)

		out.Reset()
		exec(t, con, "check")
		if !strings.Contains(out.String(), "checks out") {
			t.Fatalf("\t%s\tShould report a correct chain: %q", failed, out.String())
		}
		t.Logf("\t%s\tShould report a correct chain.", success)

		exec(t, con, "remove")
		out.Reset()
		exec(t, con, "remove")
		if con.Chain().Size() != 1 || !strings.Contains(out.String(), "Could not remove") {
			t.Fatalf("\t%s\tShould keep the first block: %q", failed, out.String())
		}
		t.Logf("\t%s\tShould keep the first block.", success)
	}
}

func TestRefused(t *testing.T) {
	never := difficulty.Func(func(digest.Digest) bool { return false })

	type table struct {
		name string
		line string
		err  error
	}

	tt := []table{
		{name: "exhausted", line: "mine alice 5", err: database.ErrMiningExhausted},
		{name: "difficulty", line: "append alice 5 0", err: chain.ErrInvalidBlock},
		{name: "invalid-tx", line: "mine alice -5", err: database.ErrInvalidTransaction},
		{name: "amount", line: "mine alice five"},
		{name: "nonce", line: "append alice 5 x"},
		{name: "args", line: "balance"},
		{name: "unknown", line: "bogus"},
	}

	t.Log("Given the need to report commands that fail.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				con, _ := newConsole(never, 10)

				quit, err := con.Execute(context.Background(), tst.line)
				if err == nil || quit {
					t.Fatalf("\t%s\tTest %d:\tShould fail %q.", failed, testID, tst.line)
				}
				t.Logf("\t%s\tTest %d:\tShould fail %q.", success, testID, tst.line)

				if tst.err != nil && !errors.Is(err, tst.err) {
					t.Fatalf("\t%s\tTest %d:\tShould match %v: %v", failed, testID, tst.err, err)
				}
				t.Logf("\t%s\tTest %d:\tShould match the expected error.", success, testID)

				if con.Chain().Size() != 0 {
					t.Fatalf("\t%s\tTest %d:\tShould leave the chain unchanged.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould leave the chain unchanged.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func TestExportImport(t *testing.T) {
	t.Log("Given the need to move a chain between consoles.")
	{
		con, _ := newConsole(difficulty.ZeroBytes(1), 0)

		txs := []database.Tx{
			{Target: "alice", Amount: 50},
			{Source: "alice", Target: "carol", Amount: 20},
		}
		if err := con.Seed(context.Background(), txs); err != nil {
			t.Fatalf("\t%s\tShould be able to seed the chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to seed the chain.", success)

		path := filepath.Join(t.TempDir(), "chain.jsonl")
		exec(t, con, "export "+path)

		other, _ := newConsole(difficulty.ZeroBytes(1), 0)
		exec(t, other, "import "+path)

		if other.Chain().Size() != 2 || other.Chain().BalanceOf("carol") != 20 {
			t.Fatalf("\t%s\tShould rebuild the chain: size %d", failed, other.Chain().Size())
		}
		t.Logf("\t%s\tShould rebuild the chain.", success)

		// A console with a harder rule must refuse the same blocks.
		never := difficulty.Func(func(digest.Digest) bool { return false })
		strict, _ := newConsole(never, 10)
		if _, err := strict.Execute(context.Background(), "import "+path); !errors.Is(err, chain.ErrInvalidBlock) {
			t.Fatalf("\t%s\tShould refuse blocks the rule rejects: %v", failed, err)
		}
		if strict.Chain().Size() != 0 {
			t.Fatalf("\t%s\tShould keep the previous chain.", failed)
		}
		t.Logf("\t%s\tShould refuse blocks the rule rejects.", success)

		empty := filepath.Join(t.TempDir(), "empty.jsonl")
		if err := os.WriteFile(empty, nil, 0600); err != nil {
			t.Fatalf("\t%s\tShould write an empty file: %v", failed, err)
		}
		if _, err := other.Execute(context.Background(), "import "+empty); !errors.Is(err, chain.ErrEmptyChain) {
			t.Fatalf("\t%s\tShould refuse a file without blocks: %v", failed, err)
		}
		if other.Chain().Size() != 2 {
			t.Fatalf("\t%s\tShould keep the chain when the file holds no blocks: size %d", failed, other.Chain().Size())
		}
		t.Logf("\t%s\tShould refuse a file without blocks.", success)
	}
}

func TestMiningProgress(t *testing.T) {
	t.Log("Given the need to show mining progress.")
	{
		pterm.DisableStyling()

		evts := events.New()
		defer evts.Shutdown()

		var out bytes.Buffer
		con := commands.New(commands.Config{
			Log:       zap.NewNop().Sugar(),
			Out:       &out,
			Predicate: difficulty.ZeroBytes(1),
			Chain:     chain.Config{EvHandler: evts.Send},
			Events:    evts,
		})

		exec(t, con, "mine alice 5")

		s := out.String()
		if !strings.Contains(s, "MINING: started") || !strings.Contains(s, "MINING: SOLVED") {
			t.Fatalf("\t%s\tShould print the mining events: %q", failed, s)
		}
		if strings.Index(s, "MINING: SOLVED") > strings.Index(s, "Nonce:") {
			t.Fatalf("\t%s\tShould print the events before the result: %q", failed, s)
		}
		t.Logf("\t%s\tShould print the mining events before the result.", success)
	}
}

func TestRun(t *testing.T) {
	t.Log("Given the need to read commands from input.")
	{
		con, out := newConsole(difficulty.ZeroBytes(1), 0)

		in := strings.NewReader("help\n\nbogus\nquit\nmine alice 5\n")
		if err := con.Run(context.Background(), in); err != nil {
			t.Fatalf("\t%s\tShould run until quit: %v", failed, err)
		}
		t.Logf("\t%s\tShould run until quit.", success)

		s := out.String()
		if !strings.Contains(s, "Command: ") || !strings.Contains(s, "Goodbye") {
			t.Fatalf("\t%s\tShould prompt and say goodbye: %q", failed, s)
		}
		t.Logf("\t%s\tShould prompt and say goodbye.", success)

		if !strings.Contains(s, "unknown command") {
			t.Fatalf("\t%s\tShould print command errors: %q", failed, s)
		}
		t.Logf("\t%s\tShould print command errors.", success)

		if strings.Contains(s, "Nonce:") {
			t.Fatalf("\t%s\tShould stop reading after quit.", failed)
		}
		t.Logf("\t%s\tShould stop reading after quit.", success)
	}
}
