package variant

import (
	"fmt"
	"strings"
)

// reconcile orders every duplicate chain by slot. Weak or discardable
// duplicates inside one slot are killed, chains defined in a single slot are
// left alone, and the slot-0 definition is moved to the chain head.
func (g *Group) reconcile() error {
	n := g.Slots()
	g.chains = g.chains[:0]

	for _, head := range g.heads {
		ordered := make([]DefID, n)
		for i := range ordered {
			ordered[i] = NoDef
		}

		count := 0
		for id := head; id != NoDef; id = g.s.Def(id).Next {
			d := g.s.Def(id)
			if d.Slot < 0 || d.Slot >= n {
				return g.errorf(InvalidConfig, d.Name, []int{d.Slot},
					"symbol '%s' has no slot in this group", d.Name)
			}

			prev := ordered[d.Slot]
			if prev == NoDef {
				ordered[d.Slot] = id
				count++
				continue
			}

			if yields(d) {
				d.Section.MarkDead()
				continue
			}
			if p := g.s.Def(prev); yields(p) {
				p.Section.MarkDead()
				ordered[d.Slot] = id
				continue
			}
			return g.errorf(StrongDuplicate, d.Name, []int{d.Slot},
				"%s defines the symbol '%s' multiple times", g.SectionName(d.Slot), d.Name)
		}

		if count != n {
			if count == 1 {
				continue
			}
			var missing []int
			var msg strings.Builder
			fmt.Fprintf(&msg, "duplicate symbol '%s' was not defined in all variants", g.s.Def(head).Name)
			for slot, id := range ordered {
				if id == NoDef {
					missing = append(missing, slot)
					fmt.Fprintf(&msg, ". Missing in %s", g.SectionName(slot))
				}
			}
			return g.errorf(IdentityInconsistency, g.s.Def(head).Name, missing, "%s", msg.String())
		}

		if ordered[0] != head {
			z := ordered[0]
			g.s.swapDefs(head, z)
			for i := range ordered {
				if ordered[i] == head {
					ordered[i] = z
				}
			}
			ordered[0] = head
		}

		for i := 0; i < n-1; i++ {
			g.s.Def(ordered[i]).Next = ordered[i+1]
		}
		g.s.Def(ordered[n-1]).Next = NoDef

		g.chains = append(g.chains, head)
	}
	return nil
}

func yields(d *Def) bool {
	return d.IsWeak || d.Section.Discardable()
}
