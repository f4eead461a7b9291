package variant

// DefID is a stable handle to a definition record. Swapping two records
// exchanges their contents behind the handles, so every holder of a handle
// keeps a valid reference.
type DefID int32

const NoDef DefID = -1

// Def is one definition of a global symbol inside a variant group.
type Def struct {
	Name    string
	Section Section
	Value   uint64
	Size    uint64
	Slot    int
	IsWeak  bool
	Next    DefID
}

func (s *Session) newDef(d Def) DefID {
	s.defs = append(s.defs, &d)
	return DefID(len(s.defs) - 1)
}

func (s *Session) Def(id DefID) *Def {
	if id == NoDef {
		return nil
	}
	return s.defs[id]
}

func (s *Session) swapDefs(a, b DefID) {
	*s.defs[a], *s.defs[b] = *s.defs[b], *s.defs[a]
}

// AddDefinition appends a definition of name to the group's duplicate
// chain. The first definition seen becomes the chain head.
func (g *Group) AddDefinition(name string, sec Section, value, size uint64, slot int, weak bool) DefID {
	id := g.s.newDef(Def{
		Name:    name,
		Section: sec,
		Value:   value,
		Size:    size,
		Slot:    slot,
		IsWeak:  weak,
		Next:    NoDef,
	})

	head, ok := g.byName[name]
	if !ok {
		g.byName[name] = id
		g.heads = append(g.heads, id)
		return id
	}

	tail := head
	for g.s.Def(tail).Next != NoDef {
		tail = g.s.Def(tail).Next
	}
	g.s.Def(tail).Next = id
	return id
}

// Head returns the chain head of name, NoDef if it has no definition.
func (g *Group) Head(name string) DefID {
	if id, ok := g.byName[name]; ok {
		return id
	}
	return NoDef
}

// Chain lists the definitions reachable from head in link order.
func (g *Group) Chain(head DefID) []*Def {
	var defs []*Def
	for id := head; id != NoDef; id = g.s.Def(id).Next {
		defs = append(defs, g.s.Def(id))
	}
	return defs
}

// Reconciled returns the heads of every chain that spans all slots.
func (g *Group) Reconciled() []DefID {
	return g.chains
}

// Privates returns the shadow definitions minted by the clash resolver.
func (g *Group) Privates() []*Def {
	var defs []*Def
	for _, jt := range g.jumpTables {
		for _, e := range jt.Entries {
			defs = append(defs, g.s.Def(e.Private))
		}
	}
	return defs
}
