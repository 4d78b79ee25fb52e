// Package ledgererr defines the error taxonomy shared by every layer of the
// ledger engine: chain logic, the three durable stores, the epoch-boundary
// engine, the mempool and the facade. Callers type-switch or use errors.As
// to decide whether a failure is fatal, retryable or a clean stop signal.
package ledgererr

import (
	"fmt"

	"github.com/pkg/errors"
)

// BrokenInvariant reports a runtime check that failed: lovelace supply
// drift, a missing prior value on undo, a dangling pool/account reference.
// It is always fatal: the caller must abort the current batch without
// committing and is expected to restart from the last good cursor.
type BrokenInvariant struct {
	Invariant string
	Detail    string
}

func (e *BrokenInvariant) Error() string {
	return fmt.Sprintf("broken invariant %q: %s", e.Invariant, e.Detail)
}

// NewBrokenInvariant builds a BrokenInvariant with a formatted detail
// message.
func NewBrokenInvariant(invariant, format string, args ...interface{}) *BrokenInvariant {
	return &BrokenInvariant{Invariant: invariant, Detail: fmt.Sprintf(format, args...)}
}

// ChainError reports a failure decoding a block, an unknown certificate kind
// in an era that should support it, or a missing required pparams field.
// Fatal for the affected batch; retrying with the same bytes never helps.
type ChainError struct {
	Point  string
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("chain error at %s: %s", e.Point, e.Reason)
}

func NewChainError(point, reason string) *ChainError {
	return &ChainError{Point: point, Reason: reason}
}

// StorageError is the common shape of StateError, ArchiveError and
// WalError: an I/O or codec failure at the storage layer. Retryable is true
// when the failure is believed transient (lock contention, temporary
// resource exhaustion) and false when the caller should escalate.
type StorageError struct {
	Layer     string
	Op        string
	Err       error
	Retryable bool
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Layer, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// StateError wraps a state-store failure.
func StateError(op string, err error, retryable bool) error {
	if err == nil {
		return nil
	}
	return &StorageError{Layer: "state", Op: op, Err: err, Retryable: retryable}
}

// ArchiveError wraps an archive-store failure.
func ArchiveError(op string, err error, retryable bool) error {
	if err == nil {
		return nil
	}
	return &StorageError{Layer: "archive", Op: op, Err: err, Retryable: retryable}
}

// WalError wraps a write-ahead-log failure.
func WalError(op string, err error, retryable bool) error {
	if err == nil {
		return nil
	}
	return &StorageError{Layer: "wal", Op: op, Err: err, Retryable: retryable}
}

// IndexError wraps a secondary-index failure in the archive store.
func IndexError(op string, err error, retryable bool) error {
	if err == nil {
		return nil
	}
	return &StorageError{Layer: "index", Op: op, Err: err, Retryable: retryable}
}

// ErrInvalidStoreVersion is returned when a store's on-disk schema-hash does
// not match the running binary's schema and no upgrade path was requested.
var ErrInvalidStoreVersion = errors.New("ledgererr: invalid store version")

// ErrStopEpochReached is not an error in the conventional sense: it signals
// that the configured stop-epoch has been hit and the caller should unwind
// cleanly (operational exit code 3).
var ErrStopEpochReached = errors.New("ledgererr: stop epoch reached")

// ErrAlreadyAtStopEpoch is returned by receive_block once processing has
// halted at the configured stop epoch.
var ErrAlreadyAtStopEpoch = errors.New("ledgererr: already at stop epoch")

// ErrNonMonotonicAppend is returned by the WAL when entries presented to
// append_entries do not strictly increase the log sequence.
var ErrNonMonotonicAppend = errors.New("ledgererr: non-monotonic wal append")

// MempoolErrorReason enumerates why a submission was rejected.
type MempoolErrorReason int

const (
	MempoolDecodeFailed MempoolErrorReason = iota
	MempoolScriptFailed
	MempoolEvaluationLimitExceeded
)

// MempoolError reports a user-visible submission rejection. It never
// affects the rest of the system.
type MempoolError struct {
	Reason MempoolErrorReason
	Logs   []string
	Err    error
}

func (e *MempoolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mempool: %v", e.Err)
	}
	return fmt.Sprintf("mempool: rejected (reason=%d)", e.Reason)
}

func (e *MempoolError) Unwrap() error { return e.Err }

// DomainError is the umbrella wrapper used at the pipeline boundary: every
// error that crosses out of the ledger engine into a caller is wrapped here
// so callers have one type to match against while still being able to
// unwrap to the concrete cause.
type DomainError struct {
	Op  string
	Err error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// Wrap builds a DomainError, attaching a stack trace via pkg/errors when the
// underlying error does not already carry one.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DomainError{Op: op, Err: errors.WithStack(err)}
}

// Retryable reports whether err (or a wrapped StorageError within it)
// should be retried at the operation level rather than escalated.
func Retryable(err error) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// Fatal reports whether err must abort the current batch without
// committing.
func Fatal(err error) bool {
	var bi *BrokenInvariant
	var ce *ChainError
	if errors.As(err, &bi) || errors.As(err, &ce) {
		return true
	}
	if se := (*StorageError)(nil); errors.As(err, &se) {
		return !se.Retryable
	}
	return false
}
