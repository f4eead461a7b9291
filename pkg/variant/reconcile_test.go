package variant

import "testing"

func TestReconcileChainOrder(t *testing.T) {
	s := NewSession()
	g := s.NewGroup("gen", 0)

	f := []*testSection{
		newTestSection(".text.f", 16, 16),
		newTestSection(".text.f", 16, 16),
		newTestSection(".text.f", 16, 16),
	}
	record(t, g, f[:1], f[1:2], f[2:])

	// Link order 2, 0, 1.
	head := g.AddDefinition("f", f[2], 0, 16, 2, false)
	g.AddDefinition("f", f[0], 0, 16, 0, false)
	g.AddDefinition("f", f[1], 0, 16, 1, false)

	if err := g.reconcile(); err != nil {
		t.Fatal(err)
	}
	if g.Head("f") != head {
		t.Fatal("chain head handle changed")
	}

	chain := g.Chain(head)
	if len(chain) != 3 {
		t.Fatalf("chain length %d", len(chain))
	}
	for slot, d := range chain {
		if d.Slot != slot || d.Section != Section(f[slot]) {
			t.Errorf("position %d holds slot %d", slot, d.Slot)
		}
	}
	if chain[2].Next != NoDef {
		t.Error("chain not terminated")
	}
	if len(g.Reconciled()) != 1 {
		t.Errorf("expected one reconciled chain, got %d", len(g.Reconciled()))
	}
}

func TestReconcileWeakDuplicates(t *testing.T) {
	for _, weakFirst := range []bool{false, true} {
		s := NewSession()
		g := s.NewGroup("gen", 0)

		f0 := newTestSection(".text.f", 16, 16)
		f1 := newTestSection(".text.f", 16, 16)
		weak := newTestSection(".text.f.weak", 16, 16)
		record(t, g, []*testSection{f0}, []*testSection{f1})

		if weakFirst {
			g.AddDefinition("f", weak, 0, 16, 0, true)
			g.AddDefinition("f", f0, 0, 16, 0, false)
		} else {
			g.AddDefinition("f", f0, 0, 16, 0, false)
			g.AddDefinition("f", weak, 0, 16, 0, true)
		}
		g.AddDefinition("f", f1, 0, 16, 1, false)

		if err := g.reconcile(); err != nil {
			t.Fatalf("weakFirst=%v: %v", weakFirst, err)
		}
		if !weak.dead || f0.dead {
			t.Errorf("weakFirst=%v: the weak duplicate must die", weakFirst)
		}
		chain := g.Chain(g.Head("f"))
		if len(chain) != 2 || chain[0].Section != Section(f0) {
			t.Errorf("weakFirst=%v: unexpected chain", weakFirst)
		}
	}
}

func TestReconcileComdatDuplicate(t *testing.T) {
	s := NewSession()
	g := s.NewGroup("gen", 0)

	f0 := newTestSection(".text.f", 16, 16)
	f1 := newTestSection(".text.f", 16, 16)
	inline := newTestSection(".text.f.inline", 16, 16)
	inline.comdat = true
	record(t, g, []*testSection{f0}, []*testSection{f1})

	g.AddDefinition("f", f0, 0, 16, 0, false)
	g.AddDefinition("f", inline, 0, 16, 0, false)
	g.AddDefinition("f", f1, 0, 16, 1, false)

	if err := g.reconcile(); err != nil {
		t.Fatal(err)
	}
	if !inline.dead {
		t.Error("discardable duplicate must die")
	}
}

func TestReconcileStrongDuplicate(t *testing.T) {
	s := NewSession()
	g := s.NewGroup("gen", 0)

	f0 := newTestSection(".text.f", 16, 16)
	f1 := newTestSection(".text.f", 16, 16)
	other := newTestSection(".text.f2", 16, 16)
	record(t, g, []*testSection{f0}, []*testSection{f1})

	g.AddDefinition("f", f0, 0, 16, 0, false)
	g.AddDefinition("f", f1, 0, 16, 1, false)
	g.AddDefinition("f", other, 0, 16, 1, false)

	le := wantKind(t, g.reconcile(), StrongDuplicate)
	if le.Name != "f" || len(le.Slots) != 1 || le.Slots[0] != 1 {
		t.Errorf("error does not name the symbol and slot: %v", le)
	}
}

func TestReconcileMissingSlot(t *testing.T) {
	s := NewSession()
	g := s.NewGroup("gen", 0)

	secs := make([]*testSection, 3)
	for i := range secs {
		secs[i] = newTestSection(".text.f", 16, 16)
	}
	record(t, g, secs[:1], secs[1:2], secs[2:])

	g.AddDefinition("f", secs[0], 0, 16, 0, false)
	g.AddDefinition("f", secs[2], 0, 16, 2, false)

	le := wantKind(t, g.reconcile(), IdentityInconsistency)
	if len(le.Slots) != 1 || le.Slots[0] != 1 {
		t.Errorf("missing slot not reported: %v", le.Slots)
	}
}

func TestReconcileSingleSlotSkipped(t *testing.T) {
	s := NewSession()
	g := s.NewGroup("gen", 0)

	f0 := newTestSection(".text.f", 16, 16)
	h1 := newTestSection(".text.h", 16, 16)
	record(t, g, []*testSection{f0}, []*testSection{h1})

	g.AddDefinition("h", h1, 0, 16, 1, false)

	if err := g.reconcile(); err != nil {
		t.Fatal(err)
	}
	if len(g.Reconciled()) != 0 {
		t.Fatal("a symbol of a single slot is not a duplicate chain")
	}
}
