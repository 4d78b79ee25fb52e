// Package point implements ChainPoint, the chain-position cursor shared by
// the state store, the WAL and the archive. A point is either the origin of
// the chain, a slot with no known block hash, or a specific slot+hash pair.
package point

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// HashSize is the length in bytes of a block hash.
const HashSize = 32

// WireSize is the length in bytes of a ChainPoint's binary encoding:
// an 8-byte big-endian slot followed by a 32-byte hash (all zero for
// Origin).
const WireSize = 8 + HashSize

// ChainPoint identifies a position on the chain. The zero value is Origin.
type ChainPoint struct {
	slot     uint64
	hash     [HashSize]byte
	specific bool
}

// Origin is the point before the first block of the chain.
var Origin = ChainPoint{}

// NewSlot builds a point that names a slot without a known hash.
func NewSlot(slot uint64) ChainPoint {
	return ChainPoint{slot: slot}
}

// NewSpecific builds a point that names a slot and the hash of the block at
// that slot.
func NewSpecific(slot uint64, hash [HashSize]byte) ChainPoint {
	return ChainPoint{slot: slot, hash: hash, specific: true}
}

// IsOrigin reports whether p is the chain origin.
func (p ChainPoint) IsOrigin() bool {
	return !p.specific && p.slot == 0
}

// IsSpecific reports whether p carries a known block hash.
func (p ChainPoint) IsSpecific() bool {
	return p.specific
}

// Slot returns the point's slot number. Origin has slot 0.
func (p ChainPoint) Slot() uint64 {
	return p.slot
}

// Hash returns the point's block hash. It is the zero hash for Origin and
// for a slot-only point.
func (p ChainPoint) Hash() [HashSize]byte {
	return p.hash
}

// Bytes encodes p into the 40-byte wire form: slot:u64_be || hash:32.
// Origin encodes as all zeros.
func (p ChainPoint) Bytes() [WireSize]byte {
	var out [WireSize]byte
	binary.BigEndian.PutUint64(out[:8], p.slot)
	copy(out[8:], p.hash[:])
	return out
}

// FromBytes decodes the 40-byte wire form produced by Bytes. A point with a
// zero hash decodes as a slot-only point (or Origin, if the slot is also
// zero); FromBytes cannot distinguish "slot-only" from "specific with the
// zero hash" because the zero hash never occurs for a real block, so this
// is lossless in practice.
func FromBytes(b [WireSize]byte) ChainPoint {
	slot := binary.BigEndian.Uint64(b[:8])
	var hash [HashSize]byte
	copy(hash[:], b[8:])
	if hash == ([HashSize]byte{}) {
		return ChainPoint{slot: slot}
	}
	return ChainPoint{slot: slot, hash: hash, specific: true}
}

// Compare orders points first by slot, then by hash, matching the ordering
// of their binary encodings. It returns -1, 0 or 1.
func (p ChainPoint) Compare(other ChainPoint) int {
	pb, ob := p.Bytes(), other.Bytes()
	return bytes.Compare(pb[:], ob[:])
}

// Equal reports whether p and other denote the same point.
func (p ChainPoint) Equal(other ChainPoint) bool {
	return p.Compare(other) == 0
}

// String renders the point's text form: "Origin", "{slot}" for a slot-only
// point, or "{slot}({hex_hash})" for a specific point.
func (p ChainPoint) String() string {
	if p.IsOrigin() {
		return "Origin"
	}
	if !p.specific {
		return fmt.Sprintf("%d", p.slot)
	}
	return fmt.Sprintf("%d(%s)", p.slot, hex.EncodeToString(p.hash[:]))
}
