// Package variant lays out several variants of the same program so that they
// share one virtual address range while being stored at distinct file
// locations.
//
// A link creates one Session. Each variant group collects sections through
// its Matcher and definitions through AddDefinition while the inputs are
// read; Organize then reconciles duplicate symbols, builds the slot table,
// resolves clashes and packs every slot. Assemble and the metadata record
// finish the group once the linker has assigned addresses.
package variant

import (
	"path/filepath"
	"sort"
)

// Policy selects how a group handles clashes and permissions.
type Policy uint64

const (
	// JumpTableOnClash routes a symbol whose offset differs between slots
	// through a per-slot jump table instead of failing the link.
	JumpTableOnClash Policy = 1 << 0
	// RemoveExecuteFlag maps the overlay segments of slots 1 and up
	// without execute permission. Slot 0 keeps it.
	RemoveExecuteFlag Policy = 1 << 32
)

// Session owns every registry of a single link.
type Session struct {
	Groups []*Group

	defs    []*Def
	objects map[string]objectSlot
}

type objectSlot struct {
	group *Group
	slot  int
}

func NewSession() *Session {
	return &Session{objects: make(map[string]objectSlot)}
}

// NewSessionFromConfig creates the groups and object mapping of cfg.
func NewSessionFromConfig(cfg *Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := NewSession()
	for _, gc := range cfg.Groups {
		flags := Policy(0)
		if gc.JumpTableOnClash {
			flags |= JumpTableOnClash
		}
		if gc.RemoveExecute {
			flags |= RemoveExecuteFlag
		}

		g := s.NewGroup(gc.Name, flags)
		g.EqualOutput = gc.Equal
		g.Matcher = NewMatcher(gc.Patterns, gc.Ignore)
		for _, obj := range gc.Objects {
			s.AddObject(g, obj.Path, obj.SlotIndex())
		}
	}
	return s, nil
}

func (s *Session) NewGroup(name string, flags Policy) *Group {
	g := &Group{
		Name:    name,
		Flags:   flags,
		Matcher: NewMatcher(nil, nil),
		byName:  make(map[string]DefID),
		s:       s,
	}
	s.Groups = append(s.Groups, g)
	return g
}

func (s *Session) Group(name string) *Group {
	for _, g := range s.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// AddObject marks the object at path as contributing to g. A negative slot
// leaves the slot to be inferred from link order.
func (s *Session) AddObject(g *Group, path string, slot int) {
	s.objects[filepath.Clean(path)] = objectSlot{group: g, slot: slot}
	if slot >= g.slots {
		g.slots = slot + 1
	}
	if slot == 0 {
		g.defaults = append(g.defaults, filepath.Clean(path))
	}
}

// Object returns the group and configured slot of an input object.
func (s *Session) Object(path string) (*Group, int, bool) {
	o, ok := s.objects[filepath.Clean(path)]
	if !ok {
		return nil, -1, false
	}
	return o.group, o.slot, true
}

// Objects lists the configured object paths in a stable order.
func (s *Session) Objects() []string {
	paths := make([]string, 0, len(s.objects))
	for p := range s.objects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
