package archive

import "encoding/binary"

// SlotsPerSegment is the slot capacity of one segment file: one Cardano
// epoch (432000 slots on mainnet cadence).
const SlotsPerSegment = 432000

// Location packs a block body's position: the segment file, its byte
// offset within that file, and its length.
type Location struct {
	SegmentID uint32
	Offset    uint64
	Length    uint32
}

// Bytes encodes the location into its 16-byte big-endian packed form:
// segment_id:u32 || offset:u64 || length:u32.
func (l Location) Bytes() [16]byte {
	var out [16]byte
	binary.BigEndian.PutUint32(out[0:4], l.SegmentID)
	binary.BigEndian.PutUint64(out[4:12], l.Offset)
	binary.BigEndian.PutUint32(out[12:16], l.Length)
	return out
}

// LocationFromBytes decodes the 16-byte packed form produced by Bytes.
func LocationFromBytes(b [16]byte) Location {
	return Location{
		SegmentID: binary.BigEndian.Uint32(b[0:4]),
		Offset:    binary.BigEndian.Uint64(b[4:12]),
		Length:    binary.BigEndian.Uint32(b[12:16]),
	}
}

// SegmentFor returns the segment id holding slot.
func SegmentFor(slot uint64) uint32 {
	return uint32(slot / SlotsPerSegment)
}
