package variant

import (
	"fmt"
	"strings"
)

// clashes reports whether b cannot share the placement of a: they sit in
// different columns or at different offsets.
func clashes(a, b *Def) bool {
	pa, pb := a.Section.Placement(), b.Section.Placement()
	if pa.Col != pb.Col || a.Value != b.Value {
		return true
	}
	return !pa.InColumn() && a.Section.Name() != b.Section.Name()
}

func (g *Group) resolveClashes() error {
	for _, head := range g.chains {
		h := g.s.Def(head)

		clash := false
		for id := h.Next; id != NoDef; id = g.s.Def(id).Next {
			if clashes(h, g.s.Def(id)) {
				clash = true
				break
			}
		}
		if !clash {
			continue
		}

		if g.Flags&JumpTableOnClash == 0 {
			var msg strings.Builder
			var slots []int
			fmt.Fprintf(&msg, "duplicate symbol '%s' has different section or offsets:\n", h.Name)
			for _, d := range g.Chain(head) {
				slots = append(slots, d.Slot)
				fmt.Fprintf(&msg, " Symbol `%s' has offset %d in section `%s' (%s)\n",
					d.Name, d.Value, d.Section.Name(), g.SectionName(d.Slot))
			}
			return g.errorf(UnresolvedClash, h.Name, slots, "%s", msg.String())
		}
		g.addJumpEntry(head)
	}
	return nil
}

func (g *Group) addJumpEntry(head DefID) {
	if len(g.jumpTables) == 0 {
		for slot := 0; slot < g.Slots(); slot++ {
			g.jumpTables = append(g.jumpTables, newJumpTable(g.s, slot, g.SectionName(slot)))
		}
	}

	var ids []DefID
	for id := head; id != NoDef; id = g.s.Def(id).Next {
		ids = append(ids, id)
	}
	for _, id := range ids {
		d := g.s.Def(id)
		g.jumpTables[d.Slot].add(id)
	}
}
