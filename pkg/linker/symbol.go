package linker

import (
	"debug/elf"
)

const (
	NEEDS_GOT uint32 = 1 << 0
)

type Symbol struct {
	File *ObjectFile

	InputSection  *InputSection
	OutputSection Chunker

	Value uint64
	Name  string

	SymIdx int32
	GotIdx int32

	Flags      uint32
	Visibility uint8

	IsWeak bool
}

func NewSymbol(name string) *Symbol {
	s := &Symbol{
		Name:       name,
		SymIdx:     -1,
		GotIdx:     -1,
		Visibility: uint8(elf.STV_DEFAULT),
	}
	return s
}

func GetSymbolByName(ctx *Context, name string) *Symbol {
	if sym, ok := ctx.SymbolMap[name]; ok {
		return sym
	}
	ctx.SymbolMap[name] = NewSymbol(name)
	return ctx.SymbolMap[name]
}

// Clear drops the definition; an archive member that stayed out of the
// link takes its symbols with it.
func (s *Symbol) Clear() {
	s.File = nil
	s.InputSection = nil
	s.OutputSection = nil
	s.Value = 0
	s.SymIdx = -1
	s.IsWeak = false
}

func (s *Symbol) SetInputSection(isec *InputSection) {
	s.InputSection = isec
	s.OutputSection = nil
}

func (s *Symbol) SetOutputSection(osec Chunker) {
	s.InputSection = nil
	s.OutputSection = osec
}

func (s *Symbol) ElfSym() *Sym {
	return &s.File.ElfSyms[s.SymIdx]
}

func (s *Symbol) GetAddr() uint64 {
	if s.InputSection == nil {
		return s.Value
	}

	if !s.InputSection.IsAlive {
		return 0
	}

	return s.InputSection.GetAddr() + s.Value
}

func (s *Symbol) GetGotAddr(ctx *Context) uint64 {
	return ctx.Got.Shdr.Addr + uint64(s.GotIdx)*8
}

func (s *Symbol) GetRank() uint64 {
	if s.File == nil {
		return 7 << 24
	}
	return GetRank(s.File, s.ElfSym(), !s.File.IsAlive)
}
