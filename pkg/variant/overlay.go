package variant

import "github.com/ksco/mvld/pkg/utils"

// Placed is a section at its offset inside a slot's overlay segment.
type Placed struct {
	Section Section
	Offset  uint64
	// Column is the table column the section belongs to or pads, -1 for the
	// jump table and leftovers.
	Column int
	Filler bool
}

// SlotLayout is the packed content of one overlay segment.
type SlotLayout struct {
	Slot     int
	Sections []Placed
	// Size is the packed size before tail padding.
	Size uint64

	VirtualAddr uint64
	LoadAddr    uint64
	FileOffset  uint64

	offsets map[Section]uint64
}

func (l *SlotLayout) push(sec Section, off uint64, col int, filler bool) {
	l.Sections = append(l.Sections, Placed{Section: sec, Offset: off, Column: col, Filler: filler})
	l.offsets[sec] = off
}

// OffsetOf returns the offset of sec inside the segment.
func (l *SlotLayout) OffsetOf(sec Section) (uint64, bool) {
	off, ok := l.offsets[sec]
	return off, ok
}

// arrange places the jump table, then every column followed by its fillers,
// then the remaining sections. Column offsets only depend on the table, so
// they agree in every slot.
func (g *Group) arrange(slot int) *SlotLayout {
	l := &SlotLayout{Slot: slot, offsets: make(map[Section]uint64)}
	cursor := uint64(0)

	if len(g.jumpTables) > 0 {
		jt := g.jumpTables[slot]
		jt.Placement().Row = slot
		l.push(jt, 0, -1, false)
		cursor = jt.Size()
	}

	pool := newFillerPool(g.leftovers(slot))
	t := g.table
	for col := 0; col < t.Cols(); col++ {
		if t.Merged(col) {
			continue
		}
		sec := t.At(slot, col)
		off := utils.AlignTo(cursor, t.Align(col))
		l.push(sec, off, col, false)
		for _, f := range fill(pool, sec, off, slot, col) {
			l.push(f.Section, f.Offset, f.Column, true)
		}
		cursor = off + t.MaxSize(col)
	}

	for _, sec := range g.leftovers(slot) {
		off := utils.AlignTo(cursor, alignOf(sec))
		l.push(sec, off, -1, false)
		cursor = off + sec.Size()
	}

	l.Size = cursor
	return l
}

// SegmentSize is the size every overlay segment of the group is padded to.
func (g *Group) SegmentSize() uint64 {
	size := uint64(0)
	for _, l := range g.layouts {
		if l.Size > size {
			size = l.Size
		}
	}
	return size
}

// Stride is the distance between the load addresses and the file offsets
// of two neighbouring slots.
func (g *Group) Stride(page uint64) uint64 {
	return utils.AlignTo(g.SegmentSize(), page)
}

// Span is the address range taken by the window and the load addresses of
// every slot.
func (g *Group) Span(page uint64) uint64 {
	return uint64(g.Slots()) * g.Stride(page)
}

// Assemble gives every slot the shared virtual address vaddr and a distinct
// load address and file offset. Slot 0 is stored at offset and loaded at
// vaddr; the others follow one page-aligned segment apart. It returns the
// file offset past the last segment.
func (g *Group) Assemble(vaddr, offset, page uint64) uint64 {
	utils.Assert(g.organized)
	utils.Assert(vaddr%page == offset%page)

	stride := g.Stride(page)
	for k, l := range g.layouts {
		l.VirtualAddr = vaddr
		l.LoadAddr = vaddr + uint64(k)*stride
		l.FileOffset = offset + uint64(k)*stride
	}
	return offset + uint64(len(g.layouts))*stride
}

// FileOffsets lists the file offset of every slot in slot order.
func (g *Group) FileOffsets() []uint64 {
	offsets := make([]uint64, len(g.layouts))
	for k, l := range g.layouts {
		offsets[k] = l.FileOffset
	}
	return offsets
}

// AddrOf returns the virtual address of d once the group is assembled. It
// reports false for definitions outside the overlay.
func (g *Group) AddrOf(d *Def) (uint64, bool) {
	if d.Slot < 0 || d.Slot >= len(g.layouts) {
		return 0, false
	}
	l := g.layouts[d.Slot]
	off, ok := l.OffsetOf(d.Section)
	if !ok {
		return 0, false
	}
	return l.VirtualAddr + off + d.Value, true
}
