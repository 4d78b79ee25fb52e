package state

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cardano-node/ledgercore/kv/memdb"
	"github.com/cardano-node/ledgercore/ledger"
	"github.com/cardano-node/ledgercore/point"
)

func TestCursorRoundTrip(t *testing.T) {
	s, err := Open(memdb.New())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, ok, err := s.ReadCursor(); err != nil || ok {
		t.Fatalf("fresh store should have no cursor: ok=%v err=%v", ok, err)
	}

	w := s.StartWriter()
	var h [32]byte
	h[0] = 7
	p := point.NewSpecific(123, h)
	w.SetCursor(p)
	if err := w.Commit(true); err != nil {
		t.Fatal(err)
	}

	got, ok, err := s.ReadCursor()
	if err != nil || !ok {
		t.Fatalf("expected cursor present: %v %v", ok, err)
	}
	if !got.Equal(p) {
		t.Fatalf("got %v, want %v", got, p)
	}
}

func TestEntityPutReadDelete(t *testing.T) {
	s, err := Open(memdb.New())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	w := s.StartWriter()
	w.PutEntity(ledger.NSAccounts, []byte("acct1"), []byte("v1"))
	w.PutEntity(ledger.NSAccounts, []byte("acct2"), []byte("v2"))
	if err := w.Commit(true); err != nil {
		t.Fatal(err)
	}

	vals, err := s.ReadEntities(ledger.NSAccounts, [][]byte{[]byte("acct1"), []byte("missing"), []byte("acct2")})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(vals[0], []byte("v1")) || vals[1] != nil || !bytes.Equal(vals[2], []byte("v2")) {
		t.Fatalf("got %v", vals)
	}
}

func TestIterEntitiesStaysWithinNamespace(t *testing.T) {
	s, err := Open(memdb.New())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	w := s.StartWriter()
	w.PutEntity(ledger.NSAccounts, []byte("a"), []byte("acc-a"))
	w.PutEntity(ledger.NSPools, []byte("a"), []byte("pool-a"))
	w.Commit(true)

	it := s.IterEntities(ledger.NSAccounts, nil, nil)
	defer it.Close()
	count := 0
	for it.Next() {
		count++
		if string(it.Value()) != "acc-a" {
			t.Fatalf("leaked cross-namespace value: %q", it.Value())
		}
	}
	if count != 1 {
		t.Fatalf("expected 1 entry, got %d", count)
	}
}

func TestGetUTxOsMissingRefsAbsent(t *testing.T) {
	s, err := Open(memdb.New())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ref := ledger.TxoRef{Index: 1}
	w := s.StartWriter()
	w.PutUTxO(ref, ledger.UTxO{Era: ledger.EraShelley, CBOR: []byte{1, 2, 3}})
	w.Commit(true)

	missing := ledger.TxoRef{Index: 99}
	got, err := s.GetUTxOs([]ledger.TxoRef{ref, missing})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got[missing]; ok {
		t.Fatal("missing ref should be absent, not present")
	}
	if u, ok := got[ref]; !ok || u.Era != ledger.EraShelley {
		t.Fatalf("got %+v", got[ref])
	}
}

func TestGetUTxOsServesFromCacheWithoutBackendRead(t *testing.T) {
	s, err := Open(memdb.New())
	require.NoError(t, err)
	defer s.Close()

	ref := ledger.TxoRef{Index: 5}
	w := s.StartWriter()
	require.NoError(t, w.PutUTxO(ref, ledger.UTxO{Era: ledger.EraShelley, CBOR: []byte{9}}))
	require.NoError(t, w.Commit(true))

	_, ok := s.utxoCache.Get(ref)
	require.True(t, ok, "a committed PutUTxO should populate the hot-UTxO cache")

	got, err := s.GetUTxOs([]ledger.TxoRef{ref})
	require.NoError(t, err)
	require.Equal(t, ledger.EraShelley, got[ref].Era)

	w2 := s.StartWriter()
	require.NoError(t, w2.DeleteUTxO(ref))
	require.NoError(t, w2.Commit(true))

	_, ok = s.utxoCache.Get(ref)
	require.False(t, ok, "a committed DeleteUTxO should evict the cache entry")
}

func TestSchemaHashMismatchRejected(t *testing.T) {
	backend := memdb.New()
	if _, err := Open(backend); err != nil {
		t.Fatal(err)
	}
	backend.SetSchemaHash("not-the-real-hash")
	if _, err := Open(backend); err == nil {
		t.Fatal("expected schema mismatch error")
	}
}
