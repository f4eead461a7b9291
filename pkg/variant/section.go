package variant

// Section is an input section that can take part in a variant group.
// The linker's input sections and the synthetic jump tables implement it.
type Section interface {
	Name() string
	Size() uint64
	Alignment() uint64
	Contents() []byte
	Discardable() bool
	IsLive() bool
	MarkDead()
	Placement() *Placement
}

// Placement is the slot table coordinate of a section plus the padding
// appended after it. Row and Col are -1 until the table builder assigns them.
type Placement struct {
	Row    int
	Col    int
	Addend uint64
}

func NewPlacement() Placement {
	return Placement{Row: -1, Col: -1}
}

func (p *Placement) InColumn() bool {
	return p.Col != -1
}

func alignOf(sec Section) uint64 {
	if a := sec.Alignment(); a > 0 {
		return a
	}
	return 1
}
