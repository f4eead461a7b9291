package variant

import (
	"fmt"

	"github.com/ksco/mvld/pkg/utils"
)

// MetaHeader is the fixed part of the overlay metadata record. The record
// ends with one uint64 file offset per segment.
type MetaHeader struct {
	StructSize   uint64
	SegmentSize  uint64
	SegmentCount uint64
	BaseAddr     uint64
}

const metaHeaderSize = 32

// Meta is the metadata record of one group. Its size is fixed by
// ReserveMeta, before layout; Finalize fills in the values afterwards.
type Meta struct {
	count     int
	buf       []byte
	finalized bool
}

func ReserveMeta(segments int) *Meta {
	return &Meta{
		count: segments,
		buf:   make([]byte, metaHeaderSize+8*segments),
	}
}

func (m *Meta) Size() uint64 {
	return uint64(len(m.buf))
}

func (m *Meta) Finalized() bool {
	return m.finalized
}

// Finalize writes the record. It fails if the number of offsets does not
// match the reservation.
func (m *Meta) Finalize(segSize, base uint64, offsets []uint64) error {
	if len(offsets) != m.count {
		return fmt.Errorf("metadata reserved for %d segments, got %d", m.count, len(offsets))
	}
	utils.Write[MetaHeader](m.buf, MetaHeader{
		StructSize:   m.Size(),
		SegmentSize:  segSize,
		SegmentCount: uint64(m.count),
		BaseAddr:     base,
	})
	for i, off := range offsets {
		utils.Write[uint64](m.buf[metaHeaderSize+8*i:], off)
	}
	m.finalized = true
	return nil
}

// Bytes is the encoded record; all zero until Finalize.
func (m *Meta) Bytes() []byte {
	return m.buf
}

// DecodeMeta parses a record produced by Finalize.
func DecodeMeta(data []byte) (MetaHeader, []uint64, error) {
	if len(data) < metaHeaderSize {
		return MetaHeader{}, nil, fmt.Errorf("metadata too short: %d bytes", len(data))
	}
	hdr := utils.Read[MetaHeader](data)
	if hdr.StructSize != metaHeaderSize+8*hdr.SegmentCount || uint64(len(data)) < hdr.StructSize {
		return hdr, nil, fmt.Errorf("metadata size %d does not fit %d segments", hdr.StructSize, hdr.SegmentCount)
	}
	offsets := make([]uint64, hdr.SegmentCount)
	for i := range offsets {
		offsets[i] = utils.Read[uint64](data[metaHeaderSize+8*i:])
	}
	return hdr, offsets, nil
}

// FinalizeMeta writes the group's record from its assembled layouts.
func (g *Group) FinalizeMeta(m *Meta) error {
	utils.Assert(len(g.layouts) > 0)
	return m.Finalize(g.SegmentSize(), g.layouts[0].VirtualAddr, g.FileOffsets())
}
