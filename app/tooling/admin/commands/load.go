// Package commands contains the administrative tasks run against a chain
// export file.
package commands

import (
	"fmt"

	"github.com/ardanlabs/hashchain/foundation/blockchain/chain"
	"github.com/ardanlabs/hashchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/hashchain/foundation/blockchain/storage"
)

// Load reads the export file into a chain without performing any of the
// append checks, so a broken file can still be inspected.
func Load(path string, rule string, n uint) (*chain.Chain, error) {
	predicate, err := difficulty.Parse(rule, n)
	if err != nil {
		return nil, fmt.Errorf("parsing difficulty: %w", err)
	}

	blocks, err := storage.ReadBlocks(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return chain.FromBlocks(predicate, chain.Config{}, blocks), nil
}
