package ledger

// EpochValue holds up to three historical snapshots of a field that
// participates in rewards or delegation, plus the value currently being
// accumulated. Mark is the snapshot taken at the end of epoch N, Set is the
// mark from epoch N-1, Go is the mark from epoch N-2: the classic
// mark/set/go rotation the rewards calculation reads three epochs back.
//
// A tagged tuple of four optional values is used rather than a persistent
// data structure: this is intentional per the design notes (cheap-clone
// implementations may share storage, but a tagged tuple is the portable
// baseline).
type EpochValue[T any] struct {
	Live T
	Mark *T
	Set  *T
	Go   *T
}

// DefaultTransition performs the boundary shift: set->go, mark->set,
// live->mark, then re-initializes live to newLive. Every EpochValue in the
// ledger must transition together within a single boundary.
func (e *EpochValue[T]) DefaultTransition(newLive T) {
	e.Go = e.Set
	e.Set = e.Mark
	mark := e.Live
	e.Mark = &mark
	e.Live = newLive
}

// AtGo returns the value from two epochs ago (epoch N-2), or the zero
// value if no Go snapshot has been taken yet.
func (e *EpochValue[T]) AtGo() T {
	if e.Go != nil {
		return *e.Go
	}
	var zero T
	return zero
}

// AtSet returns the value from one epoch ago (epoch N-1).
func (e *EpochValue[T]) AtSet() T {
	if e.Set != nil {
		return *e.Set
	}
	var zero T
	return zero
}

// AtMark returns the value from the most recently completed epoch.
func (e *EpochValue[T]) AtMark() T {
	if e.Mark != nil {
		return *e.Mark
	}
	var zero T
	return zero
}
