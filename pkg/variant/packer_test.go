package variant

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestFillerSplicedIntoGap(t *testing.T) {
	s := NewSession()
	g := s.NewGroup("gen", 0)

	f0 := newTestSection(".text.f", 8, 8)
	x0 := newTestSection(".text.x", 32, 8)
	f1 := newTestSection(".text.f", 64, 8)
	y1 := newTestSection(".text.y", 4, 4)
	record(t, g, []*testSection{f0, x0}, []*testSection{f1, y1})

	if err := g.Organize(nil); err != nil {
		t.Fatal(err)
	}

	l0 := g.Layout(0)
	if len(l0.Sections) != 2 {
		t.Fatalf("unexpected slot 0 layout %s", spew.Sdump(l0.Sections))
	}
	p := l0.Sections[1]
	if p.Section != Section(x0) || !p.Filler || p.Offset != 8 || p.Column != 0 {
		t.Fatalf("x not spliced after f: %s", spew.Sdump(p))
	}
	if f0.place.Addend != 0 || x0.place.Addend != 24 {
		t.Errorf("addends f=%d x=%d", f0.place.Addend, x0.place.Addend)
	}
	if f0.Size()+f0.place.Addend+x0.Size()+x0.place.Addend != 64 {
		t.Error("spliced column no longer spans the widest section")
	}
	if l0.Size != 64 {
		t.Errorf("slot 0 size %d", l0.Size)
	}

	// y does not fit anywhere and trails slot 1.
	if off, ok := g.Layout(1).OffsetOf(y1); !ok || off != 64 {
		t.Errorf("y at 0x%x %v", off, ok)
	}
}

func TestFillerPoolTake(t *testing.T) {
	a := newTestSection(".text.a", 16, 8)
	b := newTestSection(".text.b", 8, 8)
	c := newTestSection(".text.c", 24, 4)
	z := newTestSection(".text.z", 0, 8)
	p := newFillerPool([]Section{b, c, a, z})

	if len(p.secs) != 3 {
		t.Fatalf("empty sections must not be fillers: %d", len(p.secs))
	}
	if got := p.take(30, 8); got != Section(a) {
		t.Fatalf("largest fitting filler expected, got %v", got)
	}
	if got := p.take(30, 16); got != nil {
		t.Fatalf("alignment must match exactly, got %v", got.Name())
	}
	if got := p.take(4, 8); got != nil {
		t.Fatalf("too large filler taken: %v", got.Name())
	}
	if got := p.take(8, 8); got != Section(b) {
		t.Fatalf("exact fit expected, got %v", got)
	}
}

func TestEqualMerge(t *testing.T) {
	newGroup := func() (*Group, []*testSection) {
		s := NewSession()
		g := s.NewGroup("gen", 0)
		g.EqualOutput = ".text.equal"

		secs := []*testSection{
			newTestSection(".text.a", 4, 4),
			newTestSection(".text.b", 4, 4),
			newTestSection(".text.a", 4, 4),
			newTestSection(".text.b", 4, 4),
		}
		secs[0].data = []byte{1, 2, 3, 4}
		secs[1].data = []byte{1, 1, 1, 1}
		secs[2].data = []byte{1, 2, 3, 4}
		secs[3].data = []byte{2, 2, 2, 2}
		record(t, g, secs[:2], secs[2:])
		return g, secs
	}

	g, secs := newGroup()
	dest := &testDest{list: true}
	if err := g.Organize(testOutputs{".text.equal": dest}); err != nil {
		t.Fatal(err)
	}

	if len(dest.placed) != 1 || dest.placed[0] != Section(secs[0]) {
		t.Fatalf("slot 0 copy of a not moved: %s", spew.Sdump(dest.placed))
	}
	if !secs[2].dead || secs[0].dead {
		t.Error("only the non-default copies die")
	}
	if !g.Table().Merged(0) || g.Table().Merged(1) {
		t.Error("merged columns are wrong")
	}
	if len(g.Merged()) != 1 {
		t.Errorf("merged list %d", len(g.Merged()))
	}
	if got, ok := g.Survivor(secs[2]); !ok || got != Section(secs[0]) {
		t.Errorf("dead copy of a maps to %v", got)
	}
	for _, sec := range []*testSection{secs[0], secs[1], secs[3]} {
		if _, ok := g.Survivor(sec); ok {
			t.Errorf("%s has a survivor", sec.Name())
		}
	}
	for slot := 0; slot < 2; slot++ {
		l := g.Layout(slot)
		if len(l.Sections) != 1 || l.Sections[0].Section.Name() != ".text.b" || l.Sections[0].Offset != 0 {
			t.Errorf("slot %d layout %s", slot, spew.Sdump(l.Sections))
		}
	}

	g, _ = newGroup()
	wantKind(t, g.Organize(testOutputs{}), MissingTarget)

	g, _ = newGroup()
	wantKind(t, g.Organize(nil), MissingTarget)

	g, _ = newGroup()
	wantKind(t, g.Organize(testOutputs{".text.equal": &testDest{}}), MissingTarget)
}
