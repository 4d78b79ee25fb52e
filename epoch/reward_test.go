package epoch

import (
	"testing"

	"github.com/cardano-node/ledgercore/ledger"
)

// TestKnownTransitionPreviewEpoch1To2 reproduces the chain-observed Preview
// epoch 1->2 pot transition: eta=1 (d>=0.8), zero effective and
// unspendable rewards.
func TestKnownTransitionPreviewEpoch1To2(t *testing.T) {
	start := ledger.Pots{
		Reserves: 14991000000000000,
		Treasury: 9000000000000,
		Fees:     437793,
		Deposits: 1506000000,
		Utxos:    29999998493562207,
		Rewards:  0,
	}
	got, _ := SweepPots(start, 1, 0.003, 0.20, 0, 0)

	want := ledger.Pots{
		Reserves: 14982005400350235,
		Treasury: 17994600087558,
		Fees:     0,
		Deposits: 1506000000,
		Utxos:    29999998493562207,
		Rewards:  0,
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

// TestKnownTransitionPreviewEpoch4To5 reproduces the chain-observed Preview
// epoch 4->5 pot transition, including a non-trivial decentralization-
// adjusted eta (4298 of an expected 4320 blocks).
func TestKnownTransitionPreviewEpoch4To5(t *testing.T) {
	eta := CalculateEta(4298, 0, 0.05, 86400)

	start := ledger.Pots{
		Reserves: 14964032387721723,
		Treasury: 35967613128648,
		Fees:     1475315320689,
	}
	got, _ := SweepPots(start, eta, 0.003, 0.20, 1475315016456, 295063003292)

	if got.Reserves != 14954804628961481 {
		t.Fatalf("reserves = %d, want 14954804628961481", got.Reserves)
	}
	if got.Treasury != 45195372193123 {
		t.Fatalf("treasury = %d, want 45195372193123", got.Treasury)
	}
}

func TestCalculateEtaFullyDecentralizedIsOne(t *testing.T) {
	if eta := CalculateEta(0, 0.8, 0.05, 86400); eta != 1 {
		t.Fatalf("eta = %v, want 1", eta)
	}
}

func TestCalculateEtaCapsAtOne(t *testing.T) {
	if eta := CalculateEta(10000, 0, 0.05, 86400); eta != 1 {
		t.Fatalf("eta = %v, want 1 (minted exceeds expected)", eta)
	}
}

func TestApparentPerformanceZeroActiveStakeReturnsZero(t *testing.T) {
	if p := ApparentPerformance(0, 10, 100, 0, 0); p != 0 {
		t.Fatalf("p = %v, want 0", p)
	}
}

func TestApparentPerformanceFullyDecentralizedIsOne(t *testing.T) {
	if p := ApparentPerformance(0.8, 0, 100, 1, 1000); p != 1 {
		t.Fatalf("p = %v, want 1", p)
	}
}

func TestPoolRewardZeroWhenUnderPledged(t *testing.T) {
	if r := PoolReward(1000000, 1.0, 500, 1000); r != 0 {
		t.Fatalf("r = %d, want 0", r)
	}
}

// TestOptimalPoolRewardDividesByCirculatingSupply exercises a nonzero
// reward with sigma at exactly the saturation point z0, verifying the
// formula divides pool stake and declared pledge by circulating supply:
// poolStake/circulatingSupply = 0.01 = 1/k, and the expected 8 follows
// from that denominator.
func TestOptimalPoolRewardDividesByCirculatingSupply(t *testing.T) {
	const (
		r                 = 1000
		k                 = 100
		poolStake         = 1000000
		circulatingSupply = 100000000
		declaredPledge    = 500000
		a0                = 0.3
	)
	got := OptimalPoolReward(r, k, poolStake, circulatingSupply, declaredPledge, a0)
	if got != 8 {
		t.Fatalf("got %d, want 8", got)
	}
}

func TestOptimalPoolRewardZeroCirculatingSupplyIsZero(t *testing.T) {
	if got := OptimalPoolReward(1000, 100, 1000000, 0, 500000, 0.3); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}

func TestOperatorShareTakesEverythingBelowFixedCost(t *testing.T) {
	if s := OperatorShare(100, 340000000, 1, 50, 0, 1000); s != 100 {
		t.Fatalf("s = %d, want 100", s)
	}
}

func TestOperatorShareSplitsAboveFixedCost(t *testing.T) {
	// margin 0, pledge == poolStake (pool's entire stake is its own
	// pledge): s/sigma == 1, so the operator takes the fixed cost plus
	// the entire remainder regardless of margin.
	got := OperatorShare(1000000000, 340000000, 0, 1, 1000, 1000)
	want := uint64(340000000 + (1000000000 - 340000000))
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestDelegatorRewardProportionalShare(t *testing.T) {
	got := DelegatorReward(250, 1000, 4000)
	if got != 1000 {
		t.Fatalf("got %d, want 1000", got)
	}
}

func TestDelegatorRewardZeroTotalDelegatedIsZero(t *testing.T) {
	if r := DelegatorReward(0, 0, 4000); r != 0 {
		t.Fatalf("r = %d, want 0", r)
	}
}
