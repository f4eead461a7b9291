package variant

import (
	"fmt"
	"path/filepath"

	"github.com/ksco/mvld/pkg/utils"
)

// Group is one variant group: an ordered list of slots sharing one overlay
// window. Slot 0 is the default variant.
type Group struct {
	Name        string
	Flags       Policy
	EqualOutput string
	Matcher     *Matcher

	slots    int
	defaults []string

	byName map[string]DefID
	heads  []DefID
	chains []DefID

	table      *Table
	jumpTables []*JumpTable
	merged     []Section
	survivors  map[Section]Section
	layouts    []*SlotLayout
	locals     map[LocalKey]Section

	organized bool
	s         *Session
}

// Slots is the number of variants of the group.
func (g *Group) Slots() int {
	if n := g.Matcher.Len(); n > g.slots {
		return n
	}
	return g.slots
}

// SectionName is the overlay output section of slot, e.g. ".gen1".
func (g *Group) SectionName(slot int) string {
	return fmt.Sprintf(".%s%d", g.Name, slot)
}

func (g *Group) MetaSectionName() string {
	return "." + g.Name + "meta"
}

func (g *Group) MetaSymbolName() string {
	return g.Name + "meta_start"
}

func (g *Group) StartSymbolName() string {
	return "__start_" + g.Name
}

func (g *Group) StopSymbolName() string {
	return "__stop_" + g.Name
}

// IsDefaultObject reports whether path is an object of slot 0.
func (g *Group) IsDefaultObject(path string) bool {
	path = filepath.Clean(path)
	for _, p := range g.defaults {
		if p == path {
			return true
		}
	}
	return false
}

// StripExec reports whether slot's segment loses its executable flag.
func (g *Group) StripExec(slot int) bool {
	return slot != 0 && g.Flags&RemoveExecuteFlag != 0
}

// SlotOf returns the slot a definition in sec belongs to: the bucket of the
// section if it has one, fallback otherwise.
func (g *Group) SlotOf(sec Section, fallback int) int {
	if slot, ok := g.Matcher.Owner(sec); ok {
		return slot
	}
	return fallback
}

// Survivor returns the slot-0 section that replaced sec when its column
// was merged into the equal output section.
func (g *Group) Survivor(sec Section) (Section, bool) {
	target, ok := g.survivors[sec]
	return target, ok
}

func (g *Group) Table() *Table {
	return g.table
}

func (g *Group) JumpTables() []*JumpTable {
	return g.jumpTables
}

// Merged lists the slot-0 sections moved out by the equal-merge pass.
func (g *Group) Merged() []Section {
	return g.merged
}

func (g *Group) Layouts() []*SlotLayout {
	return g.layouts
}

func (g *Group) Layout(slot int) *SlotLayout {
	return g.layouts[slot]
}

func (g *Group) Organized() bool {
	return g.organized
}

// Organize runs the reconciler, the slot table builder, the clash resolver
// and the packer. It runs once, after every input has been collected.
// outputs may be nil when no equal-merge destination is configured.
func (g *Group) Organize(outputs Outputs) error {
	utils.Assert(!g.organized)

	if err := g.reconcile(); err != nil {
		return err
	}
	g.Matcher.prune()

	if err := g.buildTable(); err != nil {
		return err
	}
	if err := g.resolveClashes(); err != nil {
		return err
	}
	if g.EqualOutput != "" {
		if err := g.mergeEqual(outputs); err != nil {
			return err
		}
	}

	g.table.Pad()

	g.layouts = make([]*SlotLayout, g.Slots())
	for slot := range g.layouts {
		g.layouts[slot] = g.arrange(slot)
	}
	g.organized = true
	return nil
}
