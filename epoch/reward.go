// Package epoch implements the epoch-boundary reward and governance
// engine: the sweep that runs once per epoch to compute monetary
// expansion, distribute pool rewards, retire pools, expire DReps and
// proposals, and rotate every three-deep temporal snapshot.
//
// The arithmetic here must match the chain specification to the
// lovelace, so every formula is evaluated over math/big.Rat rather than
// float64: protocol parameters arrive as float64 (rho, tau, a0, the
// decentralisation parameter) because that is how the rest of the
// ledger state represents them, but each one is re-parsed from its
// shortest decimal string before any multiplication, recovering the
// exact rational the protocol parameter was defined as (0.003, not
// whatever binary fraction happens to round-trip through float64
// multiplication). All floor/round operations happen once, at the very
// end of a computation, directly on the accumulated big.Rat.
package epoch

import (
	"math/big"
	"strconv"

	"github.com/cardano-node/ledgercore/ledger"
)

func ratFromFloat(f float64) *big.Rat {
	if r, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'f', -1, 64)); ok {
		return r
	}
	return new(big.Rat).SetFloat64(f)
}

func floorRat(r *big.Rat) uint64 {
	if r.Sign() <= 0 {
		return 0
	}
	return new(big.Int).Quo(r.Num(), r.Denom()).Uint64()
}

func roundRat(r *big.Rat) uint64 {
	return floorRat(new(big.Rat).Add(r, big.NewRat(1, 2)))
}

func minRat(a, b *big.Rat) *big.Rat {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// CalculateEta computes the decentralization-adjusted eta for a closing
// epoch: 1 once the network is at least 80% decentralized, otherwise the
// ratio of blocks actually minted to the blocks expected from the active
// slots coefficient, capped at 1.
func CalculateEta(mintedBlocks uint64, d, f float64, slotsPerEpoch uint64) float64 {
	if d >= 0.8 {
		return 1
	}
	expected := ratFromFloat(1 - d)
	expected.Mul(expected, ratFromFloat(f))
	expected.Mul(expected, new(big.Rat).SetUint64(slotsPerEpoch))
	if expected.Sign() <= 0 {
		return 0
	}
	eta := new(big.Rat).SetUint64(mintedBlocks)
	eta.Quo(eta, expected)
	if eta.Cmp(big.NewRat(1, 1)) > 0 {
		return 1
	}
	f64, _ := eta.Float64()
	return f64
}

// PotDeltaResult is the intermediate monetary-expansion breakdown for one
// sweep: how much moved from reserves into the reward pot, how much of
// the reward pot was taxed into the treasury, and what remains available
// for pool distribution.
type PotDeltaResult struct {
	Dr1       uint64
	RewardPot uint64
	Dt1       uint64
	R         uint64
}

// PotDelta computes the monetary-expansion pot delta for one sweep.
func PotDelta(eta, rho, tau float64, reserves, feeSS uint64) PotDeltaResult {
	dr1rat := new(big.Rat).Mul(ratFromFloat(eta), ratFromFloat(rho))
	dr1rat.Mul(dr1rat, new(big.Rat).SetUint64(reserves))
	dr1 := floorRat(dr1rat)

	rewardPot := dr1 + feeSS

	dt1rat := new(big.Rat).Mul(ratFromFloat(tau), new(big.Rat).SetUint64(rewardPot))
	dt1 := floorRat(dt1rat)

	return PotDeltaResult{Dr1: dr1, RewardPot: rewardPot, Dt1: dt1, R: rewardPot - dt1}
}

// OptimalPoolReward computes a single pool's saturation-adjusted optimal
// reward share of the R lovelace available for distribution this epoch.
// sigma (pool_stake/circulating_supply) and s (declared_pledge/
// circulating_supply) are divided by circulating supply rather than
// active stake, matching the chain-observed reward formula rather than
// the textbook Shelley spec's active-stake denominator (active stake is
// reserved for ApparentPerformance's sigma_a only). Both are computed
// here as exact rationals from their uint64 components rather than
// taken as pre-divided float64s, since circulating supply can run into
// the tens of billions of lovelace and a float64 division at that scale
// already loses precision before the saturation cap is even applied.
func OptimalPoolReward(r, k, poolStake, circulatingSupply, declaredPledge uint64, a0 float64) uint64 {
	if k == 0 || circulatingSupply == 0 {
		return 0
	}
	z0 := big.NewRat(1, int64(k))
	sigmaP := minRat(new(big.Rat).SetFrac(new(big.Int).SetUint64(poolStake), new(big.Int).SetUint64(circulatingSupply)), z0)
	sP := minRat(new(big.Rat).SetFrac(new(big.Int).SetUint64(declaredPledge), new(big.Int).SetUint64(circulatingSupply)), z0)

	inner := new(big.Rat).Sub(z0, sigmaP)
	inner.Mul(inner, sP)
	inner.Quo(inner, z0)
	weight := new(big.Rat).Sub(sigmaP, inner)
	weight.Quo(weight, z0)

	a0r := ratFromFloat(a0)
	onePlusA0 := new(big.Rat).Add(big.NewRat(1, 1), a0r)
	base := new(big.Rat).Quo(new(big.Rat).SetUint64(r), onePlusA0)

	term2 := new(big.Rat).Mul(sP, a0r)
	term2.Mul(term2, weight)
	sum := new(big.Rat).Add(sigmaP, term2)

	return floorRat(new(big.Rat).Mul(base, sum))
}

// ApparentPerformance measures how closely a pool's block production
// tracked its stake weight this epoch. poolBlocks is the pool's own
// tally, epochBlocks the network-wide tally; both are the closing
// epoch's running counters, not a lagged snapshot.
func ApparentPerformance(d float64, poolBlocks, epochBlocks, poolStake, activeStake uint64) float64 {
	if d >= 0.8 {
		return 1
	}
	if activeStake == 0 {
		return 0
	}
	n := epochBlocks
	if n < 1 {
		n = 1
	}
	beta := new(big.Rat).Quo(new(big.Rat).SetUint64(poolBlocks), new(big.Rat).SetUint64(n))
	sigmaA := new(big.Rat).Quo(new(big.Rat).SetUint64(poolStake), new(big.Rat).SetUint64(activeStake))
	if sigmaA.Sign() == 0 {
		return 0
	}
	f64, _ := new(big.Rat).Quo(beta, sigmaA).Float64()
	return f64
}

// PoolReward is the pool's share of its optimal reward, scaled by
// apparent performance, or zero if the pool's live pledge has fallen
// below what it declared at registration.
func PoolReward(optimal uint64, apparentPerformance float64, livePledge, declaredPledge uint64) uint64 {
	if livePledge < declaredPledge {
		return 0
	}
	return floorRat(new(big.Rat).Mul(new(big.Rat).SetUint64(optimal), ratFromFloat(apparentPerformance)))
}

// OperatorShare splits a pool's reward between its fixed cost, margin and
// delegator pool, returning the operator's take (which always includes
// the fixed cost once poolRewards covers it).
func OperatorShare(poolRewards, fixedCost, marginNum, marginDenom, pledge, poolStake uint64) uint64 {
	if poolRewards <= fixedCost || marginDenom == 0 || poolStake == 0 {
		return poolRewards
	}
	m := big.NewRat(int64(marginNum), int64(marginDenom))
	sOverSigma := new(big.Rat).Quo(new(big.Rat).SetUint64(pledge), new(big.Rat).SetUint64(poolStake))
	oneMinusM := new(big.Rat).Sub(big.NewRat(1, 1), m)
	factor := new(big.Rat).Add(m, new(big.Rat).Mul(oneMinusM, sOverSigma))
	remainder := new(big.Rat).SetUint64(poolRewards - fixedCost)
	return fixedCost + floorRat(new(big.Rat).Mul(remainder, factor))
}

// DelegatorReward is a single delegator's share of a pool's
// after-operator-share reward pool, rounded to the nearest lovelace.
func DelegatorReward(delegatorStake, totalDelegated, availableRewards uint64) uint64 {
	if totalDelegated == 0 {
		return 0
	}
	r := new(big.Rat).Quo(new(big.Rat).SetUint64(delegatorStake), new(big.Rat).SetUint64(totalDelegated))
	r.Mul(r, new(big.Rat).SetUint64(availableRewards))
	return roundRat(r)
}

// SweepPots applies one epoch's monetary-expansion transition to the six
// pots. effectiveRewards is the lovelace actually credited to registered
// reward accounts; unspendableRewards is the lovelace a pool tried to pay
// to an unregistered or missing reward account. Any remainder of R not
// accounted for by either (rounding slack, pools that earned nothing)
// returns to reserves along with the unspendable portion.
func SweepPots(pots ledger.Pots, eta, rho, tau float64, effectiveRewards, unspendableRewards uint64) (newPots ledger.Pots, pd PotDeltaResult) {
	pd = PotDelta(eta, rho, tau, pots.Reserves, pots.Fees)
	distributed := effectiveRewards + unspendableRewards
	var returned uint64
	if pd.R > distributed {
		returned = pd.R - distributed
	}
	newPots.Reserves = pots.Reserves - pd.Dr1 + unspendableRewards + returned
	newPots.Treasury = pots.Treasury + pd.Dt1
	newPots.Fees = 0
	newPots.Deposits = pots.Deposits
	newPots.Utxos = pots.Utxos
	newPots.Rewards = pots.Rewards + effectiveRewards
	return newPots, pd
}
