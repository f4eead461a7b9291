package variant

import (
	"bytes"
	"sort"

	"github.com/ksco/mvld/pkg/utils"
)

// Destination is an ordinary output section that can take sections moved
// out of the overlay.
type Destination interface {
	HasPlacementList() bool
	Place(sec Section)
}

// Outputs looks up output sections by name. Output must return a nil
// interface, not a typed nil, for an unknown name.
type Outputs interface {
	Output(name string) Destination
}

// Pad sets the addend of every section so that each row spans exactly the
// widest section of its column. Running it again yields the same addends.
func (t *Table) Pad() {
	for col := 0; col < t.Cols(); col++ {
		if t.merged[col] {
			continue
		}
		widest := t.MaxSize(col)
		for row := range t.rows {
			sec := t.rows[row][col]
			sec.Placement().Addend = widest - sec.Size()
		}
	}
}

// mergeEqual moves columns whose bytes are identical in every slot to the
// equal output section. Slot 0 keeps its copy, the other copies die and
// Survivor maps them to it.
func (g *Group) mergeEqual(outputs Outputs) error {
	var dest Destination
	if outputs != nil {
		dest = outputs.Output(g.EqualOutput)
	}
	if dest == nil {
		return g.errorf(MissingTarget, g.EqualOutput, nil,
			"equal output section `%s' was not found", g.EqualOutput)
	}
	if !dest.HasPlacementList() {
		return g.errorf(MissingTarget, g.EqualOutput, nil,
			"equal output section `%s' has no input section description", g.EqualOutput)
	}

	if g.survivors == nil {
		g.survivors = make(map[Section]Section)
	}

	t := g.table
	for col := 0; col < t.Cols(); col++ {
		column := t.Column(col)
		if !identical(column) {
			continue
		}

		dest.Place(column[0])
		for _, sec := range column[1:] {
			sec.MarkDead()
			g.survivors[sec] = column[0]
		}
		t.merged[col] = true
		g.merged = append(g.merged, column[0])
	}
	return nil
}

func identical(column []Section) bool {
	first := column[0]
	for _, sec := range column[1:] {
		if sec.Size() != first.Size() || !bytes.Equal(sec.Contents(), first.Contents()) {
			return false
		}
	}
	return true
}

// fillerPool holds the non-column sections of one slot, largest first.
type fillerPool struct {
	secs []Section
}

func newFillerPool(secs []Section) *fillerPool {
	p := &fillerPool{}
	for _, sec := range secs {
		if sec.Size() > 0 {
			p.secs = append(p.secs, sec)
		}
	}
	sort.SliceStable(p.secs, func(i, j int) bool {
		return p.secs[i].Size() > p.secs[j].Size()
	})
	return p
}

// take removes the largest section no bigger than limit with alignment align.
func (p *fillerPool) take(limit, align uint64) Section {
	for i, sec := range p.secs {
		if sec.Size() <= limit && alignOf(sec) == align {
			p.secs = append(p.secs[:i], p.secs[i+1:]...)
			return sec
		}
	}
	return nil
}

// leftovers are the live sections of slot that did not make it into a
// column, in bucket order.
func (g *Group) leftovers(slot int) []Section {
	gens := g.Matcher.Generations()
	if slot >= len(gens) {
		return nil
	}
	var secs []Section
	for _, sec := range gens[slot] {
		if sec.IsLive() && !sec.Placement().InColumn() {
			secs = append(secs, sec)
		}
	}
	return secs
}

// fill splices fillers into the gap after owner, the section placed at off.
// It returns the fillers with their offsets.
func fill(pool *fillerPool, owner Section, off uint64, slot, col int) []Placed {
	var placed []Placed
	for owner.Placement().Addend > 0 {
		gap := owner.Placement().Addend
		align := alignOf(owner)
		end := utils.AlignTo(owner.Size(), align)
		pad := end - owner.Size()
		if pad >= gap {
			break
		}

		f := pool.take(gap-pad, align)
		if f == nil {
			break
		}

		owner.Placement().Addend = pad
		f.Placement().Row = slot
		f.Placement().Col = col
		f.Placement().Addend = gap - pad - f.Size()

		off += end
		placed = append(placed, Placed{Section: f, Offset: off, Column: col, Filler: true})
		owner = f
	}
	return placed
}
