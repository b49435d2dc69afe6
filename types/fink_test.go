package types

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestSMCToFinks(t *testing.T) {
	if got := SMCToFinks(1); got.Cmp(FinksPerSMC) != 0 {
		t.Fatalf("1 SMC = %s finks, want %s", got.Dec(), FinksPerSMC.Dec())
	}
	if got := SMCToFinks(0); !got.IsZero() {
		t.Fatalf("0 SMC = %s finks, want 0", got.Dec())
	}
	want := uint256.MustFromDecimal("42000000000000000000")
	if got := SMCToFinks(42); got.Cmp(want) != 0 {
		t.Fatalf("42 SMC = %s finks, want %s", got.Dec(), want.Dec())
	}
}

func TestFinksToSMC(t *testing.T) {
	finks := uint256.MustFromDecimal("2500000000000000000")
	smc, rem := FinksToSMC(finks)
	if smc.Uint64() != 2 {
		t.Fatalf("smc = %d, want 2", smc.Uint64())
	}
	if rem.Cmp(uint256.MustFromDecimal("500000000000000000")) != 0 {
		t.Fatalf("rem = %s", rem.Dec())
	}

	// Sub-SMC amounts are all remainder.
	smc, rem = FinksToSMC(uint256.NewInt(7))
	if !smc.IsZero() || rem.Uint64() != 7 {
		t.Fatalf("smc=%s rem=%s, want 0/7", smc.Dec(), rem.Dec())
	}
}

func TestFinkRoundTrip(t *testing.T) {
	for _, smc := range []uint64{1, 13, 1000000} {
		whole, rem := FinksToSMC(SMCToFinks(smc))
		if whole.Uint64() != smc || !rem.IsZero() {
			t.Fatalf("round trip %d -> %s + %s", smc, whole.Dec(), rem.Dec())
		}
	}
}
