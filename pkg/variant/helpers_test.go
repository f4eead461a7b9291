package variant

import (
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

type testSection struct {
	name   string
	size   uint64
	align  uint64
	data   []byte
	comdat bool
	dead   bool
	place  Placement
}

func newTestSection(name string, size, align uint64) *testSection {
	return &testSection{name: name, size: size, align: align, place: NewPlacement()}
}

func (s *testSection) Name() string          { return s.name }
func (s *testSection) Size() uint64          { return s.size }
func (s *testSection) Alignment() uint64     { return s.align }
func (s *testSection) Contents() []byte      { return s.data }
func (s *testSection) Discardable() bool     { return s.comdat }
func (s *testSection) IsLive() bool          { return !s.dead }
func (s *testSection) MarkDead()             { s.dead = true }
func (s *testSection) Placement() *Placement { return &s.place }

type testDest struct {
	list   bool
	placed []Section
}

func (d *testDest) HasPlacementList() bool { return d.list }
func (d *testDest) Place(sec Section)      { d.placed = append(d.placed, sec) }

type testOutputs map[string]*testDest

func (o testOutputs) Output(name string) Destination {
	if d, ok := o[name]; ok {
		return d
	}
	return nil
}

// record puts sections into the group's buckets, one list per slot.
func record(t *testing.T, g *Group, slots ...[]*testSection) {
	t.Helper()
	for slot, secs := range slots {
		for _, sec := range secs {
			if !g.Matcher.Record(sec, slot) {
				t.Fatalf("section %s rejected for slot %d", sec.name, slot)
			}
		}
	}
}

func wantKind(t *testing.T, err error, kind ErrorKind) *LinkError {
	t.Helper()
	var le *LinkError
	if !errors.As(err, &le) {
		t.Fatalf("expected a %s error, got %v", kind, err)
	}
	if le.Kind != kind {
		t.Fatalf("expected a %s error, got %s: %s", kind, le.Kind, spew.Sdump(le))
	}
	return le
}

func offsets(l *SlotLayout) map[string]uint64 {
	m := make(map[string]uint64)
	for _, p := range l.Sections {
		m[p.Section.Name()] = p.Offset
	}
	return m
}
