package linker

import (
	"debug/elf"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ZenLiuCN/fn"
	"github.com/ksco/mvld/pkg/utils"
	"github.com/ksco/mvld/pkg/variant"
)

// jumpSym is a public symbol that now names a trampoline. Its address is
// known once the overlay window is placed.
type jumpSym struct {
	sym   *Symbol
	group *variant.Group
	def   *variant.Def
}

type windowSyms struct {
	group       *variant.Group
	start, stop *Symbol
	meta        *Symbol
}

// MetaSection holds the overlay metadata record of one group.
type MetaSection struct {
	Chunk
	Group *variant.Group
	Meta  *variant.Meta
}

func NewMetaSection(g *variant.Group) *MetaSection {
	m := &MetaSection{Chunk: NewChunk(), Group: g, Meta: variant.ReserveMeta(g.Slots())}
	m.Name = g.MetaSectionName()
	m.Shdr.Type = uint32(elf.SHT_PROGBITS)
	m.Shdr.Flags = uint64(elf.SHF_ALLOC)
	m.Shdr.AddrAlign = 8
	m.Shdr.Size = m.Meta.Size()
	return m
}

func (m *MetaSection) CopyBuf(ctx *Context) {
	utils.Assert(m.Meta.Finalized())
	copy(ctx.Buf[m.Shdr.Offset:], m.Meta.Bytes())
}

func newOverlaySection(g *variant.Group, slot int) *OutputSection {
	o := NewOutputSection(g.SectionName(slot), uint32(elf.SHT_PROGBITS), uint64(elf.SHF_ALLOC), 0)
	o.Group = g
	o.Slot = slot
	o.Shdr.AddrAlign = PageSize
	o.Shdr.Size = g.SegmentSize()
	return o
}

// isDefault reports whether the overlay holds the default variant: slot 0,
// or a slot whose first input comes from a default object.
func (o *OutputSection) isDefault() bool {
	if o.Slot == 0 {
		return true
	}
	if len(o.Members) == 0 {
		return false
	}
	return o.Group.IsDefaultObject(o.Members[0].File.File.Name)
}

func (o *OutputSection) copyOverlay(ctx *Context) {
	buf := ctx.Buf[o.Shdr.Offset : o.Shdr.Offset+o.Shdr.Size]
	resolve := func(d *variant.Def) uint64 {
		return d.Section.(*InputSection).GetAddr() + d.Value
	}

	for _, p := range o.Group.Layout(o.Slot).Sections {
		switch sec := p.Section.(type) {
		case *InputSection:
			sec.WriteTo(ctx, buf[p.Offset:])
		case *variant.JumpTable:
			utils.MustNo(sec.WriteTo(buf[p.Offset:], o.Shdr.Addr+p.Offset, resolve))
		}
	}
}

// ShareVariantLocals redirects local data of non-default variants to the
// slot-0 copy.
func ShareVariantLocals(ctx *Context) {
	for _, file := range ctx.Objs {
		file.ShareLocals(true)
	}
	for _, file := range ctx.Objs {
		file.ShareLocals(false)
	}
}

func RegisterVariantDefinitions(ctx *Context) {
	for _, file := range ctx.Objs {
		file.RegisterVariantDefinitions()
	}
}

// OrganizeVariants packs every group and moves its sections into one
// overlay output section per slot.
func OrganizeVariants(ctx *Context) {
	for _, g := range ctx.Variants.Groups {
		if g.Matcher.Len() == 0 {
			continue
		}
		utils.MustNo(g.Organize(ctx))
		for _, file := range ctx.Objs {
			if file.Group == g {
				file.RedirectMergedCopies()
			}
		}
		if ctx.Arg.Debug {
			log.Printf("variant group %s:\n%s", g.Name, g.Dump())
		}

		overlays := make([]*OutputSection, g.Slots())
		for slot := range overlays {
			overlays[slot] = newOverlaySection(g, slot)
		}
		if len(g.JumpTables()) > 0 {
			for _, o := range overlays {
				o.Shdr.Flags |= uint64(elf.SHF_EXECINSTR)
			}
		}

		for _, l := range g.Layouts() {
			o := overlays[l.Slot]
			for _, p := range l.Sections {
				isec, ok := p.Section.(*InputSection)
				if !ok {
					continue
				}
				isec.OutputSection = o
				isec.Offset = uint32(p.Offset)
				o.Members = append(o.Members, isec)
				o.Shdr.Flags |= isec.Shdr().Flags & uint64(elf.SHF_WRITE|elf.SHF_EXECINSTR)
			}
			if g.StripExec(l.Slot) {
				o.Shdr.Flags &^= uint64(elf.SHF_EXECINSTR)
			}
		}

		ctx.Overlays = append(ctx.Overlays, overlays...)
		ctx.Metas = append(ctx.Metas, NewMetaSection(g))
		bindVariantSymbols(ctx, g, overlays[0])
	}
}

// bindVariantSymbols points every reconciled global at its chain head and
// adds the private symbols minted for trampolines.
func bindVariantSymbols(ctx *Context, g *variant.Group, window *OutputSection) {
	for _, head := range g.Reconciled() {
		d := ctx.Variants.Def(head)
		sym, ok := ctx.SymbolMap[d.Name]
		if !ok {
			continue
		}

		switch sec := d.Section.(type) {
		case *InputSection:
			if idx := sec.File.findGlobal(d.Name, sec); idx >= 0 {
				sym.File = sec.File
				sym.SymIdx = idx
			}
			sym.SetInputSection(sec)
			sym.Value = d.Value
			sym.IsWeak = d.IsWeak
		case *variant.JumpTable:
			sym.SetOutputSection(window)
			ctx.jumpSyms = append(ctx.jumpSyms, jumpSym{sym: sym, group: g, def: d})
		}
	}

	for _, priv := range g.Privates() {
		sym := GetSymbolByName(ctx, priv.Name)
		sym.SetInputSection(priv.Section.(*InputSection))
		sym.Value = priv.Value
	}
}

func FinalizeVariantMeta(ctx *Context) {
	for _, m := range ctx.Metas {
		utils.MustNo(m.Group.FinalizeMeta(m.Meta))
	}
}

// WriteVariantLogs writes the placement log of every group to the log
// directory, if one was given.
func WriteVariantLogs(ctx *Context) {
	if ctx.Arg.LogDir == "" {
		return
	}
	utils.MustNo(os.MkdirAll(ctx.Arg.LogDir, 0o755))

	for _, g := range ctx.Variants.Groups {
		if !g.Organized() {
			continue
		}
		path := filepath.Join(ctx.Arg.LogDir, "variant."+g.Name)
		f, err := os.Create(path)
		utils.MustNo(err)
		err = g.WriteLog(f)
		fn.IgnoreClose(f)
		if err != nil {
			utils.Fatal(fmt.Sprintf("%s: %v", path, err))
		}
	}
}
