// This program performs administrative tasks against chain export files.
package main

import (
	"fmt"
	"os"

	"github.com/ardanlabs/hashchain/app/tooling/admin/commands"
	"github.com/ardanlabs/hashchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/hashchain/foundation/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

var (
	rule  string
	zeros uint
	log   *zap.SugaredLogger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Inspects chain export files.",
	Version:       build,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Check every invariant of an exported chain.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := commands.Load(args[0], rule, zeros)
		if err != nil {
			return err
		}

		if err := commands.Verify(cmd.OutOrStdout(), ch); err != nil {
			return fmt.Errorf("verifying chain: %w", err)
		}

		return nil
	},
}

var balancesCmd = &cobra.Command{
	Use:   "balances <file> [account]",
	Short: "Print the balances of an exported chain.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := commands.Load(args[0], rule, zeros)
		if err != nil {
			return err
		}

		var onlyAct string
		if len(args) == 2 {
			onlyAct = args[1]
		}

		if err := commands.Balances(cmd.OutOrStdout(), ch, onlyAct); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}

		return nil
	},
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions <file> [account]",
	Short: "Print the transactions of an exported chain.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := commands.Load(args[0], rule, zeros)
		if err != nil {
			return err
		}

		var acct string
		if len(args) == 2 {
			acct = args[1]
		}

		if err := commands.Transactions(cmd.OutOrStdout(), ch, acct); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rule, "rule", "r", difficulty.RuleBytes, "How the difficulty is counted: bytes or bits.")
	rootCmd.PersistentFlags().UintVarP(&zeros, "difficulty", "d", 1, "Number of leading zeros a digest needs.")

	rootCmd.AddCommand(verifyCmd, balancesCmd, transactionsCmd)
}

func main() {

	// Construct the application logger.
	var err error
	log, err = logger.New("ADMIN", "stderr")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := rootCmd.Execute(); err != nil {
		log.Errorw("admin", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}
