package epoch

import (
	"bytes"
	"encoding/hex"
	"strconv"

	"github.com/cardano-node/ledgercore/ledger"
	"github.com/cardano-node/ledgercore/ledgererr"
	"github.com/cardano-node/ledgercore/log"
	"github.com/holiman/uint256"
)

// Engine runs the epoch-boundary sweep: monetary expansion, pool reward
// distribution, pool retirement, DRep expiration, proposal lifecycle and
// enactment, and the three-snapshot rotation every EpochValue field must
// undergo at each boundary.
type Engine struct {
	log     log.Logger
	network string
	table   EnactmentTable
}

// New builds an Engine for network ("mainnet", "preprod", "preview"),
// consulting table for governance-action enactment lookups.
func New(network string, table EnactmentTable) *Engine {
	return &Engine{
		log:     log.Root().New("module", "epoch", "network", network),
		network: network,
		table:   table,
	}
}

// Result is everything a sweep produced: the deltas to append to a batch
// and the next epoch's EpochState, ready to be marshaled by the caller
// alongside them.
type Result struct {
	Deltas     []ledger.Delta
	NextState  ledger.EpochState
	Incentives ledger.Incentives
}

type rewardEntry struct {
	amount uint64
	source [28]byte
}

type accountWork struct {
	cred  []byte
	prior []byte
	state ledger.AccountState
}

type poolWork struct {
	hash  [28]byte
	prior []byte
	state ledger.PoolState
}

// Sweep runs one epoch-boundary transition over the entities view exposes,
// using st as the closing epoch's state (InitialPots, Counters and Params
// reflect the epoch that is ending) and genesisMaxSupply as the network's
// fixed total supply for the post-sweep conservation check.
func (e *Engine) Sweep(view StateView, st ledger.EpochState, genesisMaxSupply uint64) (Result, error) {
	endingEpoch := st.Epoch
	params := st.Params
	d := params.Decentralisation

	accWork := map[string]*accountWork{}
	poolStakeAtGo := map[[28]byte]uint64{}
	var activeStake uint64
	liveDelegators := map[[28]byte][]string{}
	delegatorsAtGo := map[[28]byte][]struct {
		cred  string
		stake uint64
	}{}

	ai, err := view.Accounts()
	if err != nil {
		return Result{}, ledgererr.Wrap("epoch/sweep/accounts", err)
	}
	for ai.Next() {
		cred, acc := ai.Account()
		prior, merr := ledger.Marshal(acc)
		if merr != nil {
			ai.Close()
			return Result{}, ledgererr.Wrap("epoch/sweep/marshal_account", merr)
		}
		key := string(cred)
		accWork[key] = &accountWork{cred: append([]byte(nil), cred...), prior: prior, state: acc}

		if live := acc.PoolDelegation.Live; live != nil {
			liveDelegators[*live] = append(liveDelegators[*live], key)
		}
		if goHash := acc.PoolDelegation.AtGo(); goHash != nil {
			stake := acc.Stake.AtGo().UtxoSum
			poolStakeAtGo[*goHash] += stake
			activeStake += stake
			delegatorsAtGo[*goHash] = append(delegatorsAtGo[*goHash], struct {
				cred  string
				stake uint64
			}{key, stake})
		}
	}
	if err := ai.Error(); err != nil {
		ai.Close()
		return Result{}, ledgererr.Wrap("epoch/sweep/accounts_iter", err)
	}
	ai.Close()

	eta := CalculateEta(st.Counters.BlocksMinted, d, params.ActiveSlotsCoeff, params.SlotsPerEpoch)
	pdPreview := PotDelta(eta, params.MonetaryExpansion, params.TreasuryTax, st.InitialPots.Reserves, st.InitialPots.Fees)

	// OptimalPoolReward divides by circulating supply, not active stake,
	// matching the chain-observed reward formula; active stake remains
	// the denominator for ApparentPerformance's sigma_a only.
	circulatingSupply := subOrZero(genesisMaxSupply, st.InitialPots.Reserves)

	rewardCredits := map[string][]rewardEntry{}
	depositRefunds := map[string]uint64{}
	poolWorks := []*poolWork{}
	var totalRetiredDeposits, burnedDeposits, refundedDeposits uint64
	distributed := new(uint256.Int)

	pi, err := view.Pools()
	if err != nil {
		return Result{}, ledgererr.Wrap("epoch/sweep/pools", err)
	}
	for pi.Next() {
		hash, pool := pi.Pool()
		prior, merr := ledger.Marshal(pool)
		if merr != nil {
			pi.Close()
			return Result{}, ledgererr.Wrap("epoch/sweep/marshal_pool", merr)
		}
		pw := &poolWork{hash: hash, prior: prior, state: pool}
		poolWorks = append(poolWorks, pw)

		poolStake := poolStakeAtGo[hash]
		declaredPledge := pool.Params.Pledge

		var livePledge uint64
		for _, owner := range pool.Params.Owners {
			aw, ok := accWork[string(owner)]
			if !ok {
				continue
			}
			if goHash := aw.state.PoolDelegation.AtGo(); goHash != nil && *goHash == hash {
				livePledge += aw.state.Stake.AtGo().UtxoSum
			}
		}

		if circulatingSupply > 0 && poolStake > 0 {
			optimal := OptimalPoolReward(pdPreview.R, params.OptimalPoolCount, poolStake, circulatingSupply, declaredPledge, params.PoolInfluence)
			apparent := ApparentPerformance(d, pool.Snapshot.Live.BlocksMinted, st.Counters.BlocksMinted, poolStake, activeStake)
			reward := PoolReward(optimal, apparent, livePledge, declaredPledge)
			if reward > 0 {
				distributed.Add(distributed, uint256.NewInt(reward))
				operator := OperatorShare(reward, pool.Params.Cost, pool.Params.MarginNum, pool.Params.MarginDenom, declaredPledge, poolStake)
				if len(pool.Params.RewardAccount) > 0 {
					rewardCredits[string(pool.Params.RewardAccount)] = append(rewardCredits[string(pool.Params.RewardAccount)], rewardEntry{amount: operator, source: hash})
				}
				delegatorPool := reward - operator
				for _, del := range delegatorsAtGo[hash] {
					amt := DelegatorReward(del.stake, poolStake, delegatorPool)
					if amt > 0 {
						rewardCredits[del.cred] = append(rewardCredits[del.cred], rewardEntry{amount: amt, source: hash})
					}
				}
			}
		}

		if pool.RetiringEpoch != nil && *pool.RetiringEpoch == endingEpoch {
			pw.state.Snapshot.Live.IsRetired = true
			for _, cred := range liveDelegators[hash] {
				aw := accWork[cred]
				aw.state.PoolDelegation.Live = nil
			}
			totalRetiredDeposits += pool.Deposit
			if aw, ok := accWork[string(pool.Params.RewardAccount)]; ok && aw.state.RegisteredSlot != nil && aw.state.DeregisteredSlot == nil {
				depositRefunds[string(pool.Params.RewardAccount)] += pool.Deposit
				refundedDeposits += pool.Deposit
			} else {
				burnedDeposits += pool.Deposit
			}
		}
	}
	if err := pi.Error(); err != nil {
		pi.Close()
		return Result{}, ledgererr.Wrap("epoch/sweep/pools_iter", err)
	}
	pi.Close()

	if rLimit := uint256.NewInt(pdPreview.R); distributed.Cmp(rLimit) > 0 {
		return Result{}, ledgererr.NewBrokenInvariant("pool_rewards_within_available",
			"distributed=%s available=%d", distributed.String(), pdPreview.R)
	}

	preAllegra := params.MajorVersion < 3
	var effectiveRewards, unspendableRewards uint64
	for cred, entries := range rewardCredits {
		credited := mergeRewardEntries(entries, preAllegra)

		aw, ok := accWork[cred]
		if ok && aw.state.RegisteredSlot != nil && aw.state.DeregisteredSlot == nil {
			effectiveRewards += credited
			aw.state.RewardsSum += credited
		} else {
			unspendableRewards += credited
		}
	}

	if effectiveRewards+unspendableRewards > pdPreview.R {
		return Result{}, ledgererr.NewBrokenInvariant("effective_plus_unspendable_le_available",
			"effective=%d unspendable=%d available=%d", effectiveRewards, unspendableRewards, pdPreview.R)
	}

	// Deposit refunds are sourced from the Deposits pot, not the reward
	// pot R, so they are credited after the R-bounded invariant check
	// rather than folded into rewardCredits/effectiveRewards above.
	for cred, amount := range depositRefunds {
		accWork[cred].state.RewardsSum += amount
	}

	newPots, pd := SweepPots(st.InitialPots, eta, params.MonetaryExpansion, params.TreasuryTax, effectiveRewards, unspendableRewards)
	newPots.Rewards += refundedDeposits
	newPots.Deposits -= totalRetiredDeposits
	newPots.Treasury += burnedDeposits
	if newPots.Sum() != genesisMaxSupply {
		return Result{}, ledgererr.NewBrokenInvariant("max_supply_conserved",
			"pots sum=%d want=%d", newPots.Sum(), genesisMaxSupply)
	}

	var deltas []ledger.Delta

	for _, pw := range poolWorks {
		if pw.state.Snapshot.Live.IsRetired {
			if len(pw.state.Params.RewardAccount) == 0 {
				return Result{}, ledgererr.NewBrokenInvariant("retired_pool_valid_reward_account",
					"pool %x has empty reward account", pw.hash)
			}
		}
		newLive := ledger.PoolSnapshot{IsNew: false, IsRetired: pw.state.Snapshot.Live.IsRetired, BlocksMinted: 0, Params: pw.state.Params}
		pw.state.Snapshot.DefaultTransition(newLive)
		next, merr := ledger.Marshal(pw.state)
		if merr != nil {
			return Result{}, ledgererr.Wrap("epoch/sweep/marshal_pool_next", merr)
		}
		hashCopy := pw.hash
		deltas = append(deltas, &ledger.EntityDelta{Namespace: ledger.NSPools, Key: hashCopy[:], Prior: pw.prior, Next: next})
	}

	for _, aw := range accWork {
		if live := aw.state.PoolDelegation.Live; live != nil {
			found := false
			for _, pw := range poolWorks {
				if pw.hash == *live && !pw.state.Snapshot.Live.IsRetired {
					found = true
					break
				}
			}
			if !found {
				return Result{}, ledgererr.NewBrokenInvariant("delegation_resolves",
					"account delegates to unknown or retired pool %x", *live)
			}
		}

		aw.state.Stake.DefaultTransition(ledger.StakeSums{})
		aw.state.PoolDelegation.DefaultTransition(aw.state.PoolDelegation.Live)
		aw.state.DRepDelegation.DefaultTransition(aw.state.DRepDelegation.Live)

		next, merr := ledger.Marshal(aw.state)
		if merr != nil {
			return Result{}, ledgererr.Wrap("epoch/sweep/marshal_account_next", merr)
		}
		deltas = append(deltas, &ledger.EntityDelta{Namespace: ledger.NSAccounts, Key: aw.cred, Prior: aw.prior, Next: next})
	}

	drepDeltas, err := e.sweepDReps(view, st.Epoch, params.DRepInactivityPeriod)
	if err != nil {
		return Result{}, err
	}
	deltas = append(deltas, drepDeltas...)

	propDeltas, newParams, err := e.sweepProposals(view, st.Epoch, params)
	if err != nil {
		return Result{}, err
	}
	deltas = append(deltas, propDeltas...)

	next := ledger.EpochState{
		Epoch:       st.Epoch + 1,
		InitialPots: newPots,
		Incentives: ledger.Incentives{
			Eta:                eta,
			EffectiveRewards:   effectiveRewards,
			UnspendableRewards: unspendableRewards,
			ReturnedRewards:    subOrZero(pd.R, effectiveRewards+unspendableRewards),
		},
		Counters:          ledger.RollingCounters{},
		Params:            newParams,
		LargestStableSlot: st.LargestStableSlot,
	}

	return Result{Deltas: deltas, NextState: next, Incentives: next.Incentives}, nil
}

func (e *Engine) sweepDReps(view StateView, startingEpoch, inactivityPeriod uint64) ([]ledger.Delta, error) {
	di, err := view.DReps()
	if err != nil {
		return nil, ledgererr.Wrap("epoch/sweep/dreps", err)
	}
	defer di.Close()

	var deltas []ledger.Delta
	for di.Next() {
		id, d := di.DRep()
		if d.Expired {
			continue
		}
		prior, merr := ledger.Marshal(d)
		if merr != nil {
			return nil, ledgererr.Wrap("epoch/sweep/marshal_drep", merr)
		}
		if d.LastActiveSlot+inactivityPeriod <= startingEpoch {
			d.Expired = true
			next, merr := ledger.Marshal(d)
			if merr != nil {
				return nil, ledgererr.Wrap("epoch/sweep/marshal_drep_next", merr)
			}
			idCopy := append([]byte(nil), id...)
			deltas = append(deltas, &ledger.EntityDelta{Namespace: ledger.NSDReps, Key: idCopy, Prior: prior, Next: next})
		}
	}
	if err := di.Error(); err != nil {
		return nil, ledgererr.Wrap("epoch/sweep/dreps_iter", err)
	}
	return deltas, nil
}

func (e *Engine) sweepProposals(view StateView, startingEpoch uint64, params ledger.ProtocolParams) ([]ledger.Delta, ledger.ProtocolParams, error) {
	pi, err := view.Proposals()
	if err != nil {
		return nil, params, ledgererr.Wrap("epoch/sweep/proposals", err)
	}
	defer pi.Close()

	var deltas []ledger.Delta
	newParams := params
	for pi.Next() {
		p := pi.Proposal()
		if p.EnactedEpoch != nil || p.DroppedEpoch != nil || p.ExpiredEpoch != nil {
			continue
		}
		prior, merr := ledger.Marshal(p)
		if merr != nil {
			return nil, params, ledgererr.Wrap("epoch/sweep/marshal_proposal", merr)
		}

		id := proposalID(p)
		mutated := false
		if epoch, ok := e.table.EnactmentEpoch(e.network, id); ok && epoch == startingEpoch {
			enacted := startingEpoch
			p.EnactedEpoch = &enacted
			mutated = true
			switch p.Action.Kind {
			case ledger.GovActionParameterChange, ledger.GovActionHardForkInitiation:
				var overlay ledger.ProtocolParams
				if uerr := ledger.Unmarshal(p.Action.Param, &overlay); uerr != nil {
					return nil, params, ledgererr.NewChainError(id, "undecodable parameter-change payload: "+uerr.Error())
				}
				newParams = overlay
			}
		} else if p.SubmissionSlot+params.GovActionValidityPeriod <= startingEpoch {
			expired := startingEpoch
			p.ExpiredEpoch = &expired
			mutated = true
		}

		if mutated {
			next, merr := ledger.Marshal(p)
			if merr != nil {
				return nil, params, ledgererr.Wrap("epoch/sweep/marshal_proposal_next", merr)
			}
			deltas = append(deltas, &ledger.EntityDelta{Namespace: ledger.NSProposals, Key: p.Key(), Prior: prior, Next: next})
		}
	}
	if err := pi.Error(); err != nil {
		return nil, params, ledgererr.Wrap("epoch/sweep/proposals_iter", err)
	}
	return deltas, newParams, nil
}

// mergeRewardEntries resolves the known historical reward-merge quirk: an
// account that earns more than one reward in a single epoch (typically an
// operator reward plus a delegator reward) has them merged into one
// credit. Before Allegra the ledger kept only the reward whose source
// pool hash compared greatest and silently dropped the rest; Allegra
// onward sums every entry. The pre-Allegra behavior is a bug by any
// reasonable definition, but it is reproduced here bit-exactly rather
// than "fixed", since historical rewards must replay identically.
func mergeRewardEntries(entries []rewardEntry, preAllegra bool) uint64 {
	if len(entries) == 0 {
		return 0
	}
	if len(entries) == 1 {
		return entries[0].amount
	}
	if !preAllegra {
		var sum uint64
		for _, en := range entries {
			sum += en.amount
		}
		return sum
	}
	best := entries[0]
	for _, en := range entries[1:] {
		if bytes.Compare(en.source[:], best.source[:]) > 0 {
			best = en
		}
	}
	return best.amount
}

func proposalID(p ledger.Proposal) string {
	return hex.EncodeToString(p.TxHash[:]) + "#" + strconv.FormatUint(uint64(p.Index), 10)
}

func subOrZero(a, b uint64) uint64 {
	if a <= b {
		return 0
	}
	return a - b
}

