package variant

import "strings"

// LocalKey identifies a local data symbol across variants. Two locals with
// equal keys in different slots are the same static object.
type LocalKey struct {
	Name    string
	Bind    uint8
	Type    uint8
	Size    uint64
	Section string
	Value   uint64
}

var sharedDataPrefixes = []string{".bss", ".data", ".rodata"}

// IsSharedDataSection reports whether locals in a section called name are
// shared between variants.
func IsSharedDataSection(name string) bool {
	for _, p := range sharedDataPrefixes {
		if name == p || strings.HasPrefix(name, p+".") {
			return true
		}
	}
	return false
}

// RecordLocal registers the slot-0 section holding the local described by key.
func (g *Group) RecordLocal(key LocalKey, sec Section) {
	if g.locals == nil {
		g.locals = make(map[LocalKey]Section)
	}
	if _, ok := g.locals[key]; !ok {
		g.locals[key] = sec
	}
}

// SharedLocal returns the slot-0 section of the local described by key.
func (g *Group) SharedLocal(key LocalKey) (Section, bool) {
	sec, ok := g.locals[key]
	return sec, ok
}
