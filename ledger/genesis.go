package ledger

// ShelleyGenesis is the subset of the Shelley genesis file this engine
// consumes: the initial protocol parameters, the max supply, and the
// pre-registered "genesis staking" accounts and pools that exist before
// any on-chain registration certificate is seen (mainnet and the public
// testnets all carry a handful of these).
type ShelleyGenesis struct {
	Hash              [32]byte
	MaxLovelaceSupply uint64
	Params            ProtocolParams
	InitialFunds      map[[28]byte]uint64 // address hash -> lovelace; BootstrapDeltas does not read it
	StakePools        []GenesisPool
	StakeDelegations  map[[28]byte][28]byte // stake credential -> pool hash
}

// GenesisPool is a pool that exists from genesis with no registration
// certificate.
type GenesisPool struct {
	OperatorHash [28]byte
	Params       PoolParams
}

// BootstrapDeltas builds the deltas that materialize genesis staking: one
// PoolState per genesis pool and one AccountState per delegating stake
// credential, plus the Nonces entity seeded from the Shelley genesis hash.
// These are applied as part of the Genesis work unit, before the first
// block is processed.
func (g *ShelleyGenesis) BootstrapDeltas() ([]Delta, error) {
	var deltas []Delta

	for _, pool := range g.StakePools {
		ps := PoolState{
			Params:       pool.Params,
			RegisterSlot: 0,
			Deposit:      0,
		}
		ps.Snapshot.Live = PoolSnapshot{IsNew: true, Params: pool.Params}
		v, err := Marshal(ps)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, &EntityDelta{
			Namespace: NSPools,
			Key:       pool.OperatorHash[:],
			Prior:     nil,
			Next:      v,
		})
	}

	for cred, poolHash := range g.StakeDelegations {
		ph := poolHash
		acc := AccountState{}
		acc.PoolDelegation.Live = &ph
		v, err := Marshal(acc)
		if err != nil {
			return nil, err
		}
		credCopy := cred
		deltas = append(deltas, &EntityDelta{
			Namespace: NSAccounts,
			Key:       credCopy[:],
			Prior:     nil,
			Next:      v,
		})
	}

	nonces := Nonces{Epoch: g.Hash, Evolving: g.Hash, Candidate: g.Hash, PrevHash: g.Hash, Bootstrapped: true}
	nv, err := Marshal(nonces)
	if err != nil {
		return nil, err
	}
	deltas = append(deltas, &EntityDelta{
		Namespace: NSNonces,
		Key:       NoncesKey,
		Prior:     nil,
		Next:      nv,
	})

	return deltas, nil
}
