package variant

import (
	"fmt"
	"strings"

	"github.com/ksco/mvld/pkg/utils"
)

// Table is the slot table: one row per slot, one column per section name
// that every slot provides.
type Table struct {
	rows   [][]Section
	names  []string
	merged []bool
}

func newTable(rows int) *Table {
	return &Table{rows: make([][]Section, rows)}
}

func (t *Table) Rows() int {
	return len(t.rows)
}

func (t *Table) Cols() int {
	return len(t.names)
}

func (t *Table) At(row, col int) Section {
	return t.rows[row][col]
}

func (t *Table) Name(col int) string {
	return t.names[col]
}

// Merged reports whether col was moved out by the equal-merge pass.
func (t *Table) Merged(col int) bool {
	return t.merged[col]
}

func (t *Table) Column(col int) []Section {
	secs := make([]Section, len(t.rows))
	for row := range t.rows {
		secs[row] = t.rows[row][col]
	}
	return secs
}

// pushColumn appends column if every row contributed to it. It returns the
// new column index, or -1 when the name is not multi-variant.
func (t *Table) pushColumn(g *Group, name string, column []Section) (int, error) {
	utils.Assert(len(column) == t.Rows())

	valid := 0
	var missing []int
	for row, sec := range column {
		if sec == nil {
			missing = append(missing, row)
			continue
		}
		valid++
		sec.Placement().Row = row
	}

	switch {
	case valid <= 1:
		return -1, nil
	case valid != t.Rows():
		var slots []string
		for _, row := range missing {
			slots = append(slots, g.SectionName(row))
		}
		return -1, g.errorf(IdentityInconsistency, name, missing,
			"section %s occurred more than once but not in every variant (missing in %s)",
			name, strings.Join(slots, ", "))
	}

	col := t.Cols()
	for row, sec := range column {
		utils.Assert(sec.Placement().Col == -1)
		sec.Placement().Col = col
		t.rows[row] = append(t.rows[row], sec)
	}
	t.names = append(t.names, name)
	t.merged = append(t.merged, false)
	return col, nil
}

// buildTable matches the live sections of every bucket by name. Columns
// are appended in discovery order.
func (g *Group) buildTable() error {
	rows := g.Slots()
	g.table = newTable(rows)

	var order []string
	cols := make(map[string][]Section)
	gens := g.Matcher.Generations()
	for row := 0; row < rows && row < len(gens); row++ {
		for _, sec := range gens[row] {
			name := sec.Name()
			col, ok := cols[name]
			if !ok {
				col = make([]Section, rows)
				order = append(order, name)
			}
			if col[row] != nil {
				continue
			}
			col[row] = sec
			cols[name] = col
		}
	}

	for _, name := range order {
		if _, err := g.table.pushColumn(g, name, cols[name]); err != nil {
			return err
		}
	}
	return nil
}

// MaxSize is the size of the widest section of col.
func (t *Table) MaxSize(col int) uint64 {
	size := uint64(0)
	for row := range t.rows {
		if s := t.rows[row][col].Size(); s > size {
			size = s
		}
	}
	return size
}

// Align is the strictest alignment of col. Every row starts the column at
// an address aligned to it.
func (t *Table) Align(col int) uint64 {
	align := uint64(1)
	for row := range t.rows {
		if a := alignOf(t.rows[row][col]); a > align {
			align = a
		}
	}
	return align
}

func (t *Table) String() string {
	var b strings.Builder
	for col, name := range t.names {
		fmt.Fprintf(&b, "%d %s", col, name)
		for row := range t.rows {
			sec := t.rows[row][col]
			fmt.Fprintf(&b, " [%d+%d]", sec.Size(), sec.Placement().Addend)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
