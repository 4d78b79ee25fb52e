package ledger

import (
	"bytes"
	"testing"
)

func TestUTxORoundTrip(t *testing.T) {
	u := UTxO{Era: EraAlonzo, CBOR: []byte{0xde, 0xad, 0xbe, 0xef}}
	b, err := Marshal(u)
	if err != nil {
		t.Fatal(err)
	}
	var got UTxO
	if err := Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Era != u.Era || !bytes.Equal(got.CBOR, u.CBOR) {
		t.Fatalf("got %+v, want %+v", got, u)
	}
}

func TestAccountStateRoundTrip(t *testing.T) {
	pool := [28]byte{1, 2, 3}
	a := AccountState{
		RewardsSum:     1000,
		WithdrawalsSum: 200,
	}
	a.PoolDelegation.Live = &pool
	b, err := Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	var got AccountState
	if err := Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.RewardsSum != 1000 || got.WithdrawalsSum != 200 {
		t.Fatalf("scalar fields mismatch: %+v", got)
	}
	if got.PoolDelegation.Live == nil || *got.PoolDelegation.Live != pool {
		t.Fatalf("pool delegation mismatch: %+v", got.PoolDelegation)
	}
}

func TestEpochStateRoundTrip(t *testing.T) {
	es := EpochState{
		Epoch: 42,
		InitialPots: Pots{
			Reserves: 14991000000000000,
			Treasury: 9000000000000,
			Fees:     437793,
			Deposits: 1506000000,
			Utxos:    29999998493562207,
		},
	}
	b, err := Marshal(es)
	if err != nil {
		t.Fatal(err)
	}
	var got EpochState
	if err := Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Epoch != 42 || got.InitialPots != es.InitialPots {
		t.Fatalf("got %+v", got)
	}
}
