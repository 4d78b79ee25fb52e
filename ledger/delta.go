package ledger

// Writer is the minimal surface a delta needs to apply or undo itself
// against the state store's write batch. store/state provides the
// concrete implementation; chain logic and the epoch engine only ever see
// this interface so their delta computation stays independent of the
// storage backend.
type Writer interface {
	PutEntity(namespace string, key, value []byte) error
	DeleteEntity(namespace string, key []byte) error
	PutUTxO(ref TxoRef, value UTxO) error
	DeleteUTxO(ref TxoRef) error
}

// Delta is a single forward-plus-undo change to the ledger. Every delta
// records its prior value in serialized form at apply time ("undo closures
// as data"): this keeps deltas free of code references and makes the WAL
// self-describing, at the cost of a little extra storage per delta.
type Delta interface {
	Apply(w Writer) error
	Undo(w Writer) error
}

// EntityDelta changes a single (namespace, key) entry. A nil Next means
// the entity is deleted by this delta; a nil Prior means the entity did
// not exist before it.
type EntityDelta struct {
	Namespace string `cbor:"0,keyasint"`
	Key       []byte `cbor:"1,keyasint"`
	Prior     []byte `cbor:"2,keyasint"`
	Next      []byte `cbor:"3,keyasint"`
}

func (d *EntityDelta) Apply(w Writer) error {
	if d.Next == nil {
		return w.DeleteEntity(d.Namespace, d.Key)
	}
	return w.PutEntity(d.Namespace, d.Key, d.Next)
}

func (d *EntityDelta) Undo(w Writer) error {
	if d.Prior == nil {
		return w.DeleteEntity(d.Namespace, d.Key)
	}
	return w.PutEntity(d.Namespace, d.Key, d.Prior)
}

// UTxODelta records a UTxO being produced or consumed. A nil Prior means
// the output is newly produced by this delta; a nil Next means the input
// is consumed (and removed) by this delta.
type UTxODelta struct {
	Ref   TxoRef `cbor:"0,keyasint"`
	Prior *UTxO  `cbor:"1,keyasint"`
	Next  *UTxO  `cbor:"2,keyasint"`
}

func (d *UTxODelta) Apply(w Writer) error {
	if d.Next == nil {
		return w.DeleteUTxO(d.Ref)
	}
	return w.PutUTxO(d.Ref, *d.Next)
}

func (d *UTxODelta) Undo(w Writer) error {
	if d.Prior == nil {
		return w.DeleteUTxO(d.Ref)
	}
	return w.PutUTxO(d.Ref, *d.Prior)
}

// ApplyAll applies deltas in order, stopping at the first error.
func ApplyAll(w Writer, deltas []Delta) error {
	for _, d := range deltas {
		if err := d.Apply(w); err != nil {
			return err
		}
	}
	return nil
}

// UndoAll undoes deltas in reverse order, as required for rollback.
func UndoAll(w Writer, deltas []Delta) error {
	for i := len(deltas) - 1; i >= 0; i-- {
		if err := deltas[i].Undo(w); err != nil {
			return err
		}
	}
	return nil
}
