package config

import (
	"fmt"

	"github.com/holiman/uint256"

	"smc/common"
)

// GenesisConfig holds the initial allocation from genesis.yml. Amounts are
// decimal fink strings so allocations above 2^64 survive YAML parsing.
type GenesisConfig struct {
	Alloc map[string]string `yaml:"alloc"`
}

// ConfigFile is the top-level structure for genesis.yml
type ConfigFile struct {
	Genesis GenesisConfig `yaml:"genesis"`
}

// ParseAlloc validates the genesis addresses and converts the amounts
func (g *GenesisConfig) ParseAlloc() (map[string]*uint256.Int, error) {
	alloc := make(map[string]*uint256.Int, len(g.Alloc))
	for addr, amount := range g.Alloc {
		if !common.IsValidAddress(addr) {
			return nil, fmt.Errorf("invalid genesis address: %s", addr)
		}
		value, err := uint256.FromDecimal(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid genesis amount %q for %s: %w", amount, addr, err)
		}
		alloc[addr] = value
	}
	return alloc, nil
}
