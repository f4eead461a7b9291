package variant

import (
	"fmt"
	"math"

	"github.com/ksco/mvld/pkg/utils"
)

const (
	JumpTableName  = ".text.variant_jump_table"
	JumpTableAlign = 0x10
	// jmp rel32: one opcode byte and a 32-bit displacement.
	JumpEntrySize = 5
	jmpRel32      = 0xe9
)

// JumpEntry maps a public definition, now pointing into the table, to the
// private shadow definition that keeps the real target.
type JumpEntry struct {
	Public  DefID
	Private DefID
}

// JumpTable is the synthetic trampoline section of one slot.
type JumpTable struct {
	Slot    int
	Output  string
	Entries []JumpEntry

	place Placement
	s     *Session
}

func newJumpTable(s *Session, slot int, output string) *JumpTable {
	return &JumpTable{Slot: slot, Output: output, place: NewPlacement(), s: s}
}

func (j *JumpTable) Name() string          { return JumpTableName }
func (j *JumpTable) Size() uint64          { return uint64(len(j.Entries)) * JumpEntrySize }
func (j *JumpTable) Alignment() uint64     { return JumpTableAlign }
func (j *JumpTable) Contents() []byte      { return nil }
func (j *JumpTable) Discardable() bool     { return false }
func (j *JumpTable) IsLive() bool          { return true }
func (j *JumpTable) MarkDead()             {}
func (j *JumpTable) Placement() *Placement { return &j.place }

// add redirects the public definition to the next free entry and mints a
// private definition for the old target.
func (j *JumpTable) add(pub DefID) {
	d := j.s.Def(pub)
	priv := j.s.newDef(Def{
		Name:    d.Name + ".private" + j.Output,
		Section: d.Section,
		Value:   d.Value,
		Size:    d.Size,
		Slot:    d.Slot,
		Next:    NoDef,
	})

	d.Section = j
	d.Value = j.Size()
	d.Size = JumpEntrySize

	j.Entries = append(j.Entries, JumpEntry{Public: pub, Private: priv})
}

func (j *JumpTable) Public(i int) *Def {
	return j.s.Def(j.Entries[i].Public)
}

func (j *JumpTable) Private(i int) *Def {
	return j.s.Def(j.Entries[i].Private)
}

// WriteTo encodes the table placed at addr. resolve returns the final
// address of a definition.
func (j *JumpTable) WriteTo(buf []byte, addr uint64, resolve func(*Def) uint64) error {
	for i := range j.Entries {
		source := addr + uint64(i)*JumpEntrySize
		target := resolve(j.Private(i))
		if err := EncodeJump(buf[uint64(i)*JumpEntrySize:], source, target); err != nil {
			return fmt.Errorf("%s: %w", j.Public(i).Name, err)
		}
	}
	return nil
}

// EncodeJump writes a jmp rel32 at source that lands on target.
func EncodeJump(buf []byte, source, target uint64) error {
	disp := int64(target - (source + JumpEntrySize))
	if disp < math.MinInt32 || disp > math.MaxInt32 {
		return fmt.Errorf("jump from 0x%x to 0x%x is out of rel32 range", source, target)
	}
	buf[0] = jmpRel32
	utils.Write[int32](buf[1:], int32(disp))
	return nil
}
