package memdb

import (
	"bytes"
	"testing"

	"github.com/cardano-node/ledgercore/kv"
)

func TestPutGetDelete(t *testing.T) {
	db := New()
	b := db.NewBatch()
	if err := b.Put([]byte("a"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := b.Commit(true); err != nil {
		t.Fatal(err)
	}
	v, err := db.Get([]byte("a"))
	if err != nil || !bytes.Equal(v, []byte("1")) {
		t.Fatalf("got %q, %v", v, err)
	}

	b2 := db.NewBatch()
	b2.Delete([]byte("a"))
	if err := b2.Commit(true); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Get([]byte("a")); err != kv.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIteratorRangeOrder(t *testing.T) {
	db := New()
	b := db.NewBatch()
	for _, k := range []string{"b", "a", "c", "d"} {
		b.Put([]byte(k), []byte(k))
	}
	b.Commit(true)

	it := db.NewIterator([]byte("b"), []byte("d"))
	defer it.Close()
	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("got %v", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	db := New()
	b := db.NewBatch()
	b.Put([]byte("x"), []byte("1"))
	b.Commit(true)

	snap, err := db.NewSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	defer snap.Release()

	b2 := db.NewBatch()
	b2.Put([]byte("x"), []byte("2"))
	b2.Commit(true)

	v, _ := snap.Get([]byte("x"))
	if !bytes.Equal(v, []byte("1")) {
		t.Fatalf("snapshot saw mutated value: %q", v)
	}
	live, _ := db.Get([]byte("x"))
	if !bytes.Equal(live, []byte("2")) {
		t.Fatalf("live read didn't see update: %q", live)
	}
}

func TestSchemaHash(t *testing.T) {
	db := New()
	if _, ok := db.SchemaHash(); ok {
		t.Fatal("fresh db should have no schema hash")
	}
	if err := db.SetSchemaHash("deadbeef"); err != nil {
		t.Fatal(err)
	}
	h, ok := db.SchemaHash()
	if !ok || h != "deadbeef" {
		t.Fatalf("got %q, %v", h, ok)
	}
}

func TestNamespaceKeyOrdering(t *testing.T) {
	db := New()
	b := db.NewBatch()
	b.Put(kv.NamespaceKey("accounts", []byte{0x01}), []byte("acc1"))
	b.Put(kv.NamespaceKey("pools", []byte{0x01}), []byte("pool1"))
	b.Put(kv.NamespaceKey("accounts", []byte{0x02}), []byte("acc2"))
	b.Commit(true)

	start, end := kv.NamespaceRange("accounts")
	it := db.NewIterator(start, end)
	defer it.Close()
	var vals []string
	for it.Next() {
		vals = append(vals, string(it.Value()))
	}
	if len(vals) != 2 {
		t.Fatalf("expected 2 accounts entries, got %v", vals)
	}
}
