package types

import (
	"github.com/holiman/uint256"
)

// FinksPerSMC is the number of finks (the smallest indivisible currency
// unit) in one SMC: 10^18.
var FinksPerSMC = uint256.MustFromDecimal("1000000000000000000")

// SMCToFinks converts a whole number of SMC to finks.
func SMCToFinks(smc uint64) *uint256.Int {
	out := new(uint256.Int).SetUint64(smc)
	return out.Mul(out, FinksPerSMC)
}

// FinksToSMC converts a quantity of finks to whole SMC plus the fink
// remainder.
func FinksToSMC(finks *uint256.Int) (smc *uint256.Int, rem *uint256.Int) {
	smc = new(uint256.Int)
	rem = new(uint256.Int)
	smc.DivMod(finks, FinksPerSMC, rem)
	return smc, rem
}
