package epoch

import "github.com/cardano-node/ledgercore/ledger"

// memView is an in-memory StateView fixture for exercising Sweep without a
// real store. It is deliberately unordered and re-entrant only once per
// test, mirroring how a real kv.Backend snapshot iterator behaves (single
// pass, no rewind).
type memView struct {
	pools     []memPoolEntry
	accounts  []memAccountEntry
	dreps     []memDRepEntry
	proposals []ledger.Proposal
}

type memPoolEntry struct {
	hash  [28]byte
	state ledger.PoolState
}

type memAccountEntry struct {
	cred  []byte
	state ledger.AccountState
}

type memDRepEntry struct {
	id    []byte
	state ledger.DRepState
}

func (v *memView) Pools() (PoolIterator, error) {
	return &memPoolIterator{entries: v.pools, idx: -1}, nil
}

func (v *memView) Accounts() (AccountIterator, error) {
	return &memAccountIterator{entries: v.accounts, idx: -1}, nil
}

func (v *memView) DReps() (DRepIterator, error) {
	return &memDRepIterator{entries: v.dreps, idx: -1}, nil
}

func (v *memView) Proposals() (ProposalIterator, error) {
	return &memProposalIterator{entries: v.proposals, idx: -1}, nil
}

type memPoolIterator struct {
	entries []memPoolEntry
	idx     int
}

func (it *memPoolIterator) Next() bool {
	it.idx++
	return it.idx < len(it.entries)
}
func (it *memPoolIterator) Pool() ([28]byte, ledger.PoolState) {
	e := it.entries[it.idx]
	return e.hash, e.state
}
func (it *memPoolIterator) Error() error { return nil }
func (it *memPoolIterator) Close() error { return nil }

type memAccountIterator struct {
	entries []memAccountEntry
	idx     int
}

func (it *memAccountIterator) Next() bool {
	it.idx++
	return it.idx < len(it.entries)
}
func (it *memAccountIterator) Account() ([]byte, ledger.AccountState) {
	e := it.entries[it.idx]
	return e.cred, e.state
}
func (it *memAccountIterator) Error() error { return nil }
func (it *memAccountIterator) Close() error { return nil }

type memDRepIterator struct {
	entries []memDRepEntry
	idx     int
}

func (it *memDRepIterator) Next() bool {
	it.idx++
	return it.idx < len(it.entries)
}
func (it *memDRepIterator) DRep() ([]byte, ledger.DRepState) {
	e := it.entries[it.idx]
	return e.id, e.state
}
func (it *memDRepIterator) Error() error { return nil }
func (it *memDRepIterator) Close() error { return nil }

type memProposalIterator struct {
	entries []ledger.Proposal
	idx     int
}

func (it *memProposalIterator) Next() bool {
	it.idx++
	return it.idx < len(it.entries)
}
func (it *memProposalIterator) Proposal() ledger.Proposal { return it.entries[it.idx] }
func (it *memProposalIterator) Error() error              { return nil }
func (it *memProposalIterator) Close() error               { return nil }
