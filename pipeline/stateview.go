package pipeline

import (
	"github.com/cardano-node/ledgercore/epoch"
	"github.com/cardano-node/ledgercore/kv"
	"github.com/cardano-node/ledgercore/ledger"
	"github.com/cardano-node/ledgercore/ledgererr"
	"github.com/cardano-node/ledgercore/store/state"
)

// stateView adapts the durable state store to epoch.StateView: each
// iterator walks a namespace's full key range via state.Store.IterEntities
// and decodes entries lazily, so a sweep never collects a namespace into
// memory up front.
type stateView struct {
	store *state.Store
}

func newStateView(store *state.Store) epoch.StateView {
	return &stateView{store: store}
}

func (v *stateView) Pools() (epoch.PoolIterator, error) {
	return &poolIterator{inner: v.store.IterEntities(ledger.NSPools, nil, nil)}, nil
}

func (v *stateView) Accounts() (epoch.AccountIterator, error) {
	return &accountIterator{inner: v.store.IterEntities(ledger.NSAccounts, nil, nil)}, nil
}

func (v *stateView) DReps() (epoch.DRepIterator, error) {
	return &drepIterator{inner: v.store.IterEntities(ledger.NSDReps, nil, nil)}, nil
}

func (v *stateView) Proposals() (epoch.ProposalIterator, error) {
	return &proposalIterator{inner: v.store.IterEntities(ledger.NSProposals, nil, nil)}, nil
}

type poolIterator struct {
	inner kv.Iterator
	hash  [28]byte
	state ledger.PoolState
	err   error
}

func (it *poolIterator) Next() bool {
	if it.err != nil || !it.inner.Next() {
		return false
	}
	copy(it.hash[:], it.inner.Key())
	var ps ledger.PoolState
	if err := ledger.Unmarshal(it.inner.Value(), &ps); err != nil {
		it.err = ledgererr.Wrap("pipeline/stateview/pool_decode", err)
		return false
	}
	it.state = ps
	return true
}
func (it *poolIterator) Pool() ([28]byte, ledger.PoolState) { return it.hash, it.state }
func (it *poolIterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.inner.Error()
}
func (it *poolIterator) Close() error { return it.inner.Close() }

type accountIterator struct {
	inner kv.Iterator
	cred  []byte
	state ledger.AccountState
	err   error
}

func (it *accountIterator) Next() bool {
	if it.err != nil || !it.inner.Next() {
		return false
	}
	it.cred = append([]byte{}, it.inner.Key()...)
	var as ledger.AccountState
	if err := ledger.Unmarshal(it.inner.Value(), &as); err != nil {
		it.err = ledgererr.Wrap("pipeline/stateview/account_decode", err)
		return false
	}
	it.state = as
	return true
}
func (it *accountIterator) Account() ([]byte, ledger.AccountState) { return it.cred, it.state }
func (it *accountIterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.inner.Error()
}
func (it *accountIterator) Close() error { return it.inner.Close() }

type drepIterator struct {
	inner kv.Iterator
	id    []byte
	state ledger.DRepState
	err   error
}

func (it *drepIterator) Next() bool {
	if it.err != nil || !it.inner.Next() {
		return false
	}
	it.id = append([]byte{}, it.inner.Key()...)
	var ds ledger.DRepState
	if err := ledger.Unmarshal(it.inner.Value(), &ds); err != nil {
		it.err = ledgererr.Wrap("pipeline/stateview/drep_decode", err)
		return false
	}
	it.state = ds
	return true
}
func (it *drepIterator) DRep() ([]byte, ledger.DRepState) { return it.id, it.state }
func (it *drepIterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.inner.Error()
}
func (it *drepIterator) Close() error { return it.inner.Close() }

type proposalIterator struct {
	inner kv.Iterator
	prop  ledger.Proposal
	err   error
}

func (it *proposalIterator) Next() bool {
	if it.err != nil || !it.inner.Next() {
		return false
	}
	var p ledger.Proposal
	if err := ledger.Unmarshal(it.inner.Value(), &p); err != nil {
		it.err = ledgererr.Wrap("pipeline/stateview/proposal_decode", err)
		return false
	}
	it.prop = p
	return true
}
func (it *proposalIterator) Proposal() ledger.Proposal { return it.prop }
func (it *proposalIterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.inner.Error()
}
func (it *proposalIterator) Close() error { return it.inner.Close() }
