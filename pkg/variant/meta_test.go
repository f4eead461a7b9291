package variant

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/ksco/mvld/pkg/utils"
)

func TestMetaTwoPhase(t *testing.T) {
	m := ReserveMeta(3)
	if m.Size() != 32+3*8 {
		t.Fatalf("reserved %d bytes", m.Size())
	}
	if !utils.AllZeros(m.Bytes()) || m.Finalized() {
		t.Fatal("placeholder must be zero")
	}

	if err := m.Finalize(0x1000, 0x600000, []uint64{1}); err == nil {
		t.Fatal("offset count mismatch accepted")
	}

	offs := []uint64{0x2000, 0x3000, 0x4000}
	if err := m.Finalize(0x1000, 0x600000, offs); err != nil {
		t.Fatal(err)
	}
	if m.Size() != 56 {
		t.Fatalf("size changed to %d", m.Size())
	}

	hdr, got, err := DecodeMeta(m.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	want := MetaHeader{StructSize: 56, SegmentSize: 0x1000, SegmentCount: 3, BaseAddr: 0x600000}
	if hdr != want {
		t.Fatalf("header %s", spew.Sdump(hdr))
	}
	for i := range offs {
		if got[i] != offs[i] {
			t.Errorf("offset %d: 0x%x", i, got[i])
		}
	}
}

func TestDecodeMetaRejectsTruncated(t *testing.T) {
	m := ReserveMeta(2)
	if err := m.Finalize(8, 0, []uint64{0, 0x1000}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := DecodeMeta(m.Bytes()[:40]); err == nil {
		t.Fatal("truncated record accepted")
	}
	if _, _, err := DecodeMeta(m.Bytes()[:16]); err == nil {
		t.Fatal("short header accepted")
	}
}

func TestGroupMetaRoundTrip(t *testing.T) {
	g, _ := fgh(t)
	if err := g.Organize(nil); err != nil {
		t.Fatal(err)
	}

	m := ReserveMeta(g.Slots())
	end := g.Assemble(0x600000, 0x2000, 0x1000)
	if err := g.FinalizeMeta(m); err != nil {
		t.Fatal(err)
	}

	hdr, offs, err := DecodeMeta(m.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if hdr.SegmentCount != 2 || hdr.BaseAddr != 0x600000 {
		t.Fatalf("header %s", spew.Sdump(hdr))
	}

	seen := make(map[uint64]bool)
	for slot, off := range offs {
		if seen[off] {
			t.Errorf("offset 0x%x used twice", off)
		}
		seen[off] = true
		if off+hdr.SegmentSize > end {
			t.Errorf("slot %d runs past the image", slot)
		}
		l := g.Layout(slot)
		if l.Size > hdr.SegmentSize || l.VirtualAddr != hdr.BaseAddr || l.FileOffset != off {
			t.Errorf("slot %d layout %s", slot, spew.Sdump(l.Size, l.VirtualAddr, l.FileOffset))
		}
	}
	if end != 0x4000 {
		t.Errorf("end 0x%x", end)
	}
	if g.Stride(0x1000) != 0x1000 || g.Span(0x1000) != 0x2000 {
		t.Errorf("stride 0x%x, span 0x%x", g.Stride(0x1000), g.Span(0x1000))
	}
	for slot := range offs {
		if l := g.Layout(slot); l.LoadAddr+l.Size > 0x600000+g.Span(0x1000) {
			t.Errorf("slot %d loads at 0x%x, past the span", slot, l.LoadAddr)
		}
	}
}
