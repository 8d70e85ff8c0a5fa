// Package genesis maintains access to the genesis file.
package genesis

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/ardanlabs/hashchain/foundation/blockchain/database"
	"github.com/ardanlabs/hashchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/hashchain/foundation/validate"
)

// Genesis represents the genesis file.
type Genesis struct {
	Rule        string    `toml:"rule" json:"rule" validate:"omitempty,oneof=bytes bits"` // How the difficulty is counted.
	Difficulty  uint      `toml:"difficulty" json:"difficulty" validate:"lte=256"`        // Number of leading zeros required.
	MaxAttempts uint64    `toml:"max_attempts" json:"max_attempts"`                       // Bound on the nonce search, zero for no bound.
	Deposits    []Deposit `toml:"deposits" json:"deposits" validate:"dive"`               // Mined in order when the chain starts.
}

// Deposit represents an initial balance granted to an account.
type Deposit struct {
	Target string `toml:"target" json:"target" validate:"required"`
	Amount int    `toml:"amount" json:"amount" validate:"gte=0,lte=2147483647"`
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	f, err := os.Open(path)
	if err != nil {
		return Genesis{}, err
	}
	defer f.Close()

	return Decode(f)
}

// Decode reads a genesis document in TOML format.
func Decode(r io.Reader) (Genesis, error) {
	var genesis Genesis
	if _, err := toml.NewDecoder(r).Decode(&genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis: %w", err)
	}

	if genesis.Rule == "" {
		genesis.Rule = difficulty.RuleBytes
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the genesis values.
func (g Genesis) Validate() error {
	if err := validate.Check(g); err != nil {
		return fmt.Errorf("validating genesis: %w", err)
	}

	if _, err := g.Predicate(); err != nil {
		return fmt.Errorf("validating genesis: %w", err)
	}

	return nil
}

// Predicate constructs the difficulty predicate described by the genesis.
func (g Genesis) Predicate() (difficulty.Predicate, error) {
	rule := g.Rule
	if rule == "" {
		rule = difficulty.RuleBytes
	}

	return difficulty.Parse(rule, g.Difficulty)
}

// Transactions converts the deposits into transactions.
func (g Genesis) Transactions() ([]database.Tx, error) {
	txs := make([]database.Tx, 0, len(g.Deposits))
	for _, dep := range g.Deposits {
		tx, err := database.NewDeposit(dep.Target, dep.Amount)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return txs, nil
}
