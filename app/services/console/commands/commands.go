// Package commands binds the console's text commands to the chain.
package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ardanlabs/hashchain/foundation/blockchain/chain"
	"github.com/ardanlabs/hashchain/foundation/blockchain/database"
	"github.com/ardanlabs/hashchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/hashchain/foundation/blockchain/storage"
	"github.com/ardanlabs/hashchain/foundation/events"
	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by the console.
type Config struct {
	Log         *zap.SugaredLogger
	Out         io.Writer
	Predicate   difficulty.Predicate
	Chain       chain.Config
	MineTimeout time.Duration  // Zero means mining runs until solved.
	Events      *events.Events // Optional source of mining progress.
	TraceID     string
}

// Console executes commands against a single chain.
type Console struct {
	log         *zap.SugaredLogger
	out         io.Writer
	predicate   difficulty.Predicate
	chainCfg    chain.Config
	mineTimeout time.Duration
	events      *events.Events
	traceID     string

	chain *chain.Chain
}

// New constructs a console with an empty chain.
func New(cfg Config) *Console {
	return &Console{
		log:         cfg.Log,
		out:         cfg.Out,
		predicate:   cfg.Predicate,
		chainCfg:    cfg.Chain,
		mineTimeout: cfg.MineTimeout,
		events:      cfg.Events,
		traceID:     cfg.TraceID,
		chain:       chain.New(cfg.Predicate, cfg.Chain),
	}
}

// Chain returns the chain the console is working on.
func (c *Console) Chain() *chain.Chain {
	return c.chain
}

// Seed mines and appends a block for every transaction. It's used to apply
// the genesis deposits when the console starts.
func (c *Console) Seed(ctx context.Context, txs []database.Tx) error {
	for _, tx := range txs {
		blk, err := c.mine(ctx, tx)
		if err != nil {
			return fmt.Errorf("mining %s: %w", tx, err)
		}

		if err := c.chain.Append(blk); err != nil {
			return fmt.Errorf("appending %s: %w", tx, err)
		}
	}

	return nil
}

// Run reads commands from the reader one line at a time until the quit
// command, the end of the input or the context is cancelled.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(c.out, instructions)

	scanner := bufio.NewScanner(in)
	for ctx.Err() == nil {
		fmt.Fprint(c.out, "\nCommand: ")

		if !scanner.Scan() {
			break
		}

		quit, err := c.Execute(ctx, scanner.Text())
		if err != nil {
			fmt.Fprint(c.out, pterm.Error.Sprintln(err))
		}

		if quit {
			break
		}
	}

	fmt.Fprintln(c.out, "\nGoodbye")

	return scanner.Err()
}

// Execute runs a single command line. It reports true when the line asks
// the console to quit.
func (c *Console) Execute(ctx context.Context, line string) (bool, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}

	args[0] = strings.ToLower(args[0])
	if args[0] == "quit" {
		return true, nil
	}

	c.log.Infow("console", "status", "command", "command", args[0], "traceid", c.traceID)

	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(c.out)
	root.SetErr(c.out)

	if err := root.ExecuteContext(ctx); err != nil {
		c.log.Infow("console", "status", "command failed", "command", args[0], "ERROR", err, "traceid", c.traceID)
		return false, err
	}

	return false, nil
}

// =============================================================================

const instructions = `Valid commands:
  mine: discovers the nonce for a given transaction
  append: appends a new block onto the end of the chain
  remove: removes the last block from the end of the chain
  check: checks that the block chain is valid
  users: prints a list of users
  balance: finds a user's balance
  transactions: prints out the chain of transactions
  blocks: prints out the chain of blocks (for debugging only)
  export: writes the chain to a file
  import: replaces the chain with the blocks in a file
  help: prints this list of commands
  quit: quits the program`

// rootCmd constructs the command tree. A new tree is built for every line so
// no state is carried between commands.
func (c *Console) rootCmd() *cobra.Command {
	root := cobra.Command{
		Use:           "console",
		Short:         "Proof of work hash chain console",
		Long:          instructions,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		&cobra.Command{
			Use:                "mine [source] <target> <amount>",
			Short:              "Discovers the nonce for a given transaction",
			Args:               cobra.RangeArgs(2, 3),
			RunE:               c.mineCmd,
			DisableFlagParsing: true,
		},
		&cobra.Command{
			Use:                "append [source] <target> <amount> <nonce>",
			Short:              "Appends a new block onto the end of the chain",
			Args:               cobra.RangeArgs(3, 4),
			RunE:               c.appendCmd,
			DisableFlagParsing: true,
		},
		&cobra.Command{
			Use:   "remove",
			Short: "Removes the last block from the end of the chain",
			Args:  cobra.NoArgs,
			RunE:  c.removeCmd,
		},
		&cobra.Command{
			Use:   "check",
			Short: "Checks that the block chain is valid",
			Args:  cobra.NoArgs,
			RunE:  c.checkCmd,
		},
		&cobra.Command{
			Use:   "users",
			Short: "Prints a list of users",
			Args:  cobra.NoArgs,
			RunE:  c.usersCmd,
		},
		&cobra.Command{
			Use:   "balance <user>",
			Short: "Finds a user's balance",
			Args:  cobra.ExactArgs(1),
			RunE:  c.balanceCmd,
		},
		&cobra.Command{
			Use:   "transactions",
			Short: "Prints out the chain of transactions",
			Args:  cobra.NoArgs,
			RunE:  c.transactionsCmd,
		},
		&cobra.Command{
			Use:   "blocks",
			Short: "Prints out the chain of blocks",
			Args:  cobra.NoArgs,
			RunE:  c.blocksCmd,
		},
		&cobra.Command{
			Use:   "export <path>",
			Short: "Writes the chain to a file",
			Args:  cobra.ExactArgs(1),
			RunE:  c.exportCmd,
		},
		&cobra.Command{
			Use:   "import <path>",
			Short: "Replaces the chain with the blocks in a file",
			Args:  cobra.ExactArgs(1),
			RunE:  c.importCmd,
		},
	)

	return &root
}

func (c *Console) mineCmd(cmd *cobra.Command, args []string) error {
	tx, err := parseTx(args)
	if err != nil {
		return err
	}

	stop := c.watch(cmd.OutOrStdout())
	blk, err := c.mine(cmd.Context(), tx)
	stop()

	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Nonce: %d", blk.Nonce()))
	fmt.Fprintf(cmd.OutOrStdout(), "Hash: %s\n", blk.Digest())

	return nil
}

func (c *Console) appendCmd(cmd *cobra.Command, args []string) error {
	last := len(args) - 1

	nonce, err := strconv.ParseUint(args[last], 10, 64)
	if err != nil {
		return fmt.Errorf("nonce %q is not a number", args[last])
	}

	tx, err := parseTx(args[:last])
	if err != nil {
		return err
	}

	// The chain is empty until the first block is appended.
	prev, err := c.chain.TailDigest()
	if err != nil && !errors.Is(err, chain.ErrEmptyChain) {
		return err
	}

	blk, err := database.NewBlock(c.chain.Size(), tx, prev, nonce)
	if err != nil {
		return err
	}

	if err := c.chain.Append(blk); err != nil {
		return fmt.Errorf("could not append: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Appended: %s", blk))

	return nil
}

func (c *Console) removeCmd(cmd *cobra.Command, args []string) error {
	if !c.chain.RemoveLast() {
		fmt.Fprint(cmd.OutOrStdout(), pterm.Warning.Sprintln("Could not remove the first block."))
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintln("Removed last element"))

	return nil
}

func (c *Console) checkCmd(cmd *cobra.Command, args []string) error {
	if err := c.chain.Check(); err != nil {
		fmt.Fprint(cmd.OutOrStdout(), pterm.Error.Sprintfln("The blockchain does not check out: %s", err))
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintln("The blockchain checks out."))

	return nil
}

func (c *Console) usersCmd(cmd *cobra.Command, args []string) error {
	data := pterm.TableData{{"User", "Balance"}}
	for user := range c.chain.Participants() {
		data = append(data, []string{user, strconv.FormatInt(c.chain.BalanceOf(user), 10)})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), table)

	return nil
}

func (c *Console) balanceCmd(cmd *cobra.Command, args []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", args[0], c.chain.BalanceOf(args[0]))

	return nil
}

func (c *Console) transactionsCmd(cmd *cobra.Command, args []string) error {
	data := pterm.TableData{{"Block", "Source", "Target", "Amount"}}

	var num int
	for tx := range c.chain.Transactions() {
		source := tx.Source
		if tx.IsDeposit() {
			source = "(deposit)"
		}
		data = append(data, []string{strconv.Itoa(num), source, tx.Target, strconv.Itoa(tx.Amount)})
		num++
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), table)

	return nil
}

func (c *Console) blocksCmd(cmd *cobra.Command, args []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "Blocks %d\n", c.chain.Size())
	for blk := range c.chain.Blocks() {
		fmt.Fprintln(cmd.OutOrStdout(), blk)
	}

	return nil
}

func (c *Console) exportCmd(cmd *cobra.Command, args []string) error {
	n, err := storage.WriteChain(args[0], c.chain.Blocks())
	if err != nil {
		return fmt.Errorf("exporting chain: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Exported %d blocks to %s", n, args[0]))

	return nil
}

func (c *Console) importCmd(cmd *cobra.Command, args []string) error {
	blocks, err := storage.ReadBlocks(args[0])
	if err != nil {
		return fmt.Errorf("importing chain: %w", err)
	}

	if len(blocks) == 0 {
		return fmt.Errorf("importing chain: %s holds no blocks: %w", args[0], chain.ErrEmptyChain)
	}

	// Every block goes through Append so the imported chain is validated
	// before it replaces the current one.
	ch := chain.New(c.predicate, c.chainCfg)
	for _, blk := range blocks {
		if err := ch.Append(blk); err != nil {
			return fmt.Errorf("importing chain: %w", err)
		}
	}

	if err := ch.Check(); err != nil {
		return fmt.Errorf("importing chain: %w", err)
	}

	c.chain = ch

	fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln("Imported %d blocks from %s", len(blocks), args[0]))

	return nil
}

// =============================================================================

// mine runs the nonce search for the next block, bounded by the configured
// timeout.
func (c *Console) mine(ctx context.Context, tx database.Tx) (database.Block, error) {
	if c.mineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.mineTimeout)
		defer cancel()
	}

	return c.chain.Mine(ctx, tx)
}

// watch prints the mining events published while a nonce is searched for.
// The returned function stops the printing and waits for it to finish.
func (c *Console) watch(w io.Writer) func() {
	if c.events == nil {
		return func() {}
	}

	id := uuid.NewString()
	ch := c.events.Acquire(id)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for s := range ch {
			if strings.Contains(s, "MINING") {
				fmt.Fprint(w, pterm.Info.Sprintln(s))
			}
		}
	}()

	return func() {
		c.events.Release(id)
		<-done
	}
}

// parseTx converts [source] <target> <amount> into a transaction. With two
// arguments the transaction is a deposit.
func parseTx(args []string) (database.Tx, error) {
	var source string
	if len(args) == 3 {
		source = args[0]
		args = args[1:]
	}

	amount, err := strconv.Atoi(args[1])
	if err != nil {
		return database.Tx{}, fmt.Errorf("amount %q is not a number", args[1])
	}

	return database.NewTx(source, args[0], amount)
}
