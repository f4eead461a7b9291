package linker

import (
	"debug/elf"
	"fmt"
	"math"

	"github.com/ksco/mvld/pkg/utils"
	"github.com/ksco/mvld/pkg/variant"
)

type InputSection struct {
	File          *ObjectFile
	OutputSection *OutputSection
	Data          []byte
	Offset        uint32
	Shndx         uint32
	RelsecIdx     uint32
	ShSize        uint32
	IsAlive       bool
	P2Align       uint8
	Rels          []Rela

	Place variant.Placement
}

func NewInputSection(
	ctx *Context, file *ObjectFile, name string, shndx int64,
) *InputSection {
	s := &InputSection{
		Offset:    math.MaxUint32,
		Shndx:     uint32(shndx),
		RelsecIdx: math.MaxUint32,
		IsAlive:   true,
		File:      file,
		Place:     variant.NewPlacement(),
	}

	shdr := s.Shdr()
	if shdr.Flags&uint64(elf.SHF_COMPRESSED) != 0 {
		utils.Fatal(fmt.Sprintf("%s: compressed section %s is not supported", file.File.Name, name))
	}
	if shdr.Type != uint32(elf.SHT_NOBITS) {
		s.Data = file.GetBytesFromShdr(shdr)
	}

	s.ShSize = uint32(shdr.Size)
	if shdr.AddrAlign > 0 {
		s.P2Align = utils.Log2(shdr.AddrAlign)
	}

	s.OutputSection =
		GetOutputSectionInstance(ctx, name, uint64(shdr.Type), shdr.Flags)

	return s
}

func (s *InputSection) Shdr() *Shdr {
	utils.Assert(s.Shndx < uint32(len(s.File.ElfSections)))
	return &s.File.ElfSections[s.Shndx]
}

func (s *InputSection) GetAddr() uint64 {
	return s.OutputSection.Shdr.Addr + uint64(s.Offset)
}

func (s *InputSection) Name() string {
	return getName(s.File.ShStrtab, s.Shdr().Name)
}

func (s *InputSection) Size() uint64 {
	return uint64(s.ShSize)
}

func (s *InputSection) Contents() []byte {
	return s.Data
}

func (s *InputSection) Alignment() uint64 {
	return 1 << s.P2Align
}

func (s *InputSection) Discardable() bool {
	return s.Shdr().Flags&uint64(elf.SHF_GROUP) != 0
}

func (s *InputSection) IsLive() bool {
	return s.IsAlive
}

func (s *InputSection) MarkDead() {
	s.IsAlive = false
}

func (s *InputSection) Placement() *variant.Placement {
	return &s.Place
}

func (s *InputSection) GetRels() []Rela {
	if s.RelsecIdx == math.MaxUint32 || s.Rels != nil {
		return s.Rels
	}

	bs := s.File.GetBytesFromShdr(&s.File.InputFile.ElfSections[s.RelsecIdx])
	s.Rels = readTable[Rela](bs)
	return s.Rels
}

func (s *InputSection) ScanRelocations(ctx *Context) {
	utils.Assert(s.Shdr().Flags&uint64(elf.SHF_ALLOC) != 0)

	for _, rel := range s.GetRels() {
		if rel.Type == uint32(elf.R_X86_64_NONE) {
			continue
		}

		sym := s.File.Symbols[rel.Sym]
		if sym.File == nil {
			utils.Fatal(fmt.Sprintf("%s: undefined symbol: %s", s.File.File.Name, sym.Name))
		}

		switch elf.R_X86_64(rel.Type) {
		case elf.R_X86_64_64, elf.R_X86_64_32, elf.R_X86_64_32S,
			elf.R_X86_64_PC32, elf.R_X86_64_PLT32, elf.R_X86_64_PC64:
		case elf.R_X86_64_GOTPCREL, elf.R_X86_64_GOTPCRELX, elf.R_X86_64_REX_GOTPCRELX:
			sym.Flags |= NEEDS_GOT
		default:
			utils.Fatal(fmt.Sprintf("%s: %s: unsupported relocation %s against %s",
				s.File.File.Name, s.Name(), elf.R_X86_64(rel.Type), sym.Name))
		}
	}
}

func (s *InputSection) WriteTo(ctx *Context, buf []byte) {
	if s.Shdr().Type == uint32(elf.SHT_NOBITS) || s.ShSize == 0 {
		return
	}

	copy(buf, s.Data)

	if s.Shdr().Flags&uint64(elf.SHF_ALLOC) != 0 {
		s.ApplyRelocAlloc(ctx, buf)
	}
}

func (s *InputSection) overflow(rel Rela, sym *Symbol, val int64) {
	utils.Fatal(fmt.Sprintf("%s: %s+0x%x: relocation %s against %s out of range: %d",
		s.File.File.Name, s.Name(), rel.Offset, elf.R_X86_64(rel.Type), sym.Name, val))
}

func (s *InputSection) ApplyRelocAlloc(ctx *Context, base []byte) {
	for _, rel := range s.GetRels() {
		if rel.Type == uint32(elf.R_X86_64_NONE) {
			continue
		}

		sym := s.File.Symbols[rel.Sym]
		loc := base[rel.Offset:]

		if sym.File == nil {
			utils.Fatal(fmt.Sprintf("undefined symbol: %s", sym.Name))
		}

		S := sym.GetAddr()
		A := uint64(rel.Addend)
		P := s.GetAddr() + rel.Offset

		write32s := func(val uint64) {
			if int64(val) != int64(int32(val)) {
				s.overflow(rel, sym, int64(val))
			}
			utils.Write[int32](loc, int32(val))
		}

		switch elf.R_X86_64(rel.Type) {
		case elf.R_X86_64_64:
			utils.Write[uint64](loc, S+A)
		case elf.R_X86_64_32:
			val := S + A
			if val != uint64(uint32(val)) {
				s.overflow(rel, sym, int64(val))
			}
			utils.Write[uint32](loc, uint32(val))
		case elf.R_X86_64_32S:
			write32s(S + A)
		case elf.R_X86_64_PC32, elf.R_X86_64_PLT32:
			write32s(S + A - P)
		case elf.R_X86_64_PC64:
			utils.Write[uint64](loc, S+A-P)
		case elf.R_X86_64_GOTPCREL, elf.R_X86_64_GOTPCRELX, elf.R_X86_64_REX_GOTPCRELX:
			write32s(sym.GetGotAddr(ctx) + A - P)
		default:
			utils.Fatal("unreachable")
		}
	}
}
