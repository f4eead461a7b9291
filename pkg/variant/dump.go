package variant

import (
	"bufio"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
)

// WriteLog writes the human-readable placement of every slot.
func (g *Group) WriteLog(w io.Writer) error {
	bw := bufio.NewWriter(w)

	for _, sec := range g.merged {
		fmt.Fprintf(bw, "Move equal sections: %s to %s\n", sec.Name(), g.EqualOutput)
	}

	for _, l := range g.layouts {
		fmt.Fprintf(bw, "%s {\n", g.SectionName(l.Slot))
		for _, p := range l.Sections {
			if jt, ok := p.Section.(*JumpTable); ok {
				for i := range jt.Entries {
					priv := jt.Private(i)
					fmt.Fprintf(bw, "   J Sym(%s) -> Sec(%s,%d)\n",
						jt.Public(i).Name, priv.Section.Name(), priv.Value)
				}
				continue
			}

			mark := "N"
			switch {
			case p.Filler:
				mark = "^"
			case p.Column < 0:
				mark = "?"
			}
			fmt.Fprintf(bw, "   %s Sec(%s) off=0x%x size=%d align=%d addend=%d\n",
				mark, p.Section.Name(), p.Offset, p.Section.Size(),
				alignOf(p.Section), p.Section.Placement().Addend)
		}
		fmt.Fprintf(bw, "}\n")
	}
	return bw.Flush()
}

type groupSummary struct {
	Name        string
	Slots       int
	Columns     []string
	SegmentSize uint64
	Layouts     []layoutSummary
}

type layoutSummary struct {
	Slot        int
	Size        uint64
	VirtualAddr uint64
	FileOffset  uint64
	Sections    []string
}

// Dump renders the organized group for debug output.
func (g *Group) Dump() string {
	sum := groupSummary{Name: g.Name, Slots: g.Slots(), SegmentSize: g.SegmentSize()}
	if g.table != nil {
		sum.Columns = g.table.names
	}
	for _, l := range g.layouts {
		ls := layoutSummary{Slot: l.Slot, Size: l.Size, VirtualAddr: l.VirtualAddr, FileOffset: l.FileOffset}
		for _, p := range l.Sections {
			ls.Sections = append(ls.Sections, fmt.Sprintf("0x%x %s", p.Offset, p.Section.Name()))
		}
		sum.Layouts = append(sum.Layouts, ls)
	}
	return spew.Sdump(sum)
}
