package epoch

import "github.com/cardano-node/ledgercore/ledger"

// PoolIterator walks every PoolState entity. Must be closed after use.
type PoolIterator interface {
	Next() bool
	Pool() (hash [28]byte, state ledger.PoolState)
	Error() error
	Close() error
}

// AccountIterator walks every AccountState entity, keyed by its stake
// credential. Must be closed after use.
type AccountIterator interface {
	Next() bool
	Account() (credential []byte, state ledger.AccountState)
	Error() error
	Close() error
}

// DRepIterator walks every DRepState entity. Must be closed after use.
type DRepIterator interface {
	Next() bool
	DRep() (id []byte, state ledger.DRepState)
	Error() error
	Close() error
}

// ProposalIterator walks every Proposal entity. Must be closed after use.
type ProposalIterator interface {
	Next() bool
	Proposal() ledger.Proposal
	Error() error
	Close() error
}

// StateView is the read surface the sweep needs over the state store.
// It mirrors the injected-interface pattern chainlogic.Processor uses:
// the sweep computes and returns deltas, it never touches a kv.Backend
// directly, so it stays testable against an in-memory fixture.
type StateView interface {
	Pools() (PoolIterator, error)
	Accounts() (AccountIterator, error)
	DReps() (DRepIterator, error)
	Proposals() (ProposalIterator, error)
}
