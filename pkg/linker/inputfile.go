package linker

import (
	"debug/elf"
	"fmt"
	"unsafe"

	"github.com/ksco/mvld/pkg/utils"
)

type InputFile struct {
	File         *File
	Symbols      []*Symbol
	ElfSections  []Shdr
	FirstGlobal  int64
	ShStrtab     []byte
	SymbolStrtab []byte

	ElfSyms  []Sym
	IsAlive  bool
	Priority uint32

	LocalSyms []Symbol
}

// readTable decodes consecutive fixed-size records.
func readTable[T any](bs []byte) []T {
	size := int(unsafe.Sizeof(*new(T)))
	vals := make([]T, 0, len(bs)/size)
	for len(bs) >= size {
		vals = append(vals, utils.Read[T](bs))
		bs = bs[size:]
	}
	return vals
}

func NewInputFile(file *File) *InputFile {
	f := &InputFile{File: file, IsAlive: true}
	if len(file.Contents) < int(unsafe.Sizeof(Ehdr{})) {
		utils.Fatal(fmt.Sprintf("%s: file too small", file.Name))
	}
	if !CheckMagic(file.Contents) {
		utils.Fatal(fmt.Sprintf("%s: not an ELF file", file.Name))
	}

	ehdr := utils.Read[Ehdr](file.Contents)
	if ehdr.ShOff+uint64(unsafe.Sizeof(Shdr{})) > uint64(len(file.Contents)) {
		utils.Fatal(fmt.Sprintf("%s: section header table is out of range", file.Name))
	}

	contents := file.Contents[ehdr.ShOff:]
	first := utils.Read[Shdr](contents)

	numSections := uint64(ehdr.ShNum)
	if numSections == 0 {
		numSections = first.Size
	}
	end := numSections * uint64(unsafe.Sizeof(Shdr{}))
	if end > uint64(len(contents)) {
		utils.Fatal(fmt.Sprintf("%s: section header table is out of range", file.Name))
	}
	f.ElfSections = readTable[Shdr](contents[:end])

	shstrtabIdx := int64(ehdr.ShStrndx)
	if ehdr.ShStrndx == uint16(elf.SHN_XINDEX) {
		shstrtabIdx = int64(first.Link)
	}

	f.ShStrtab = f.GetBytesFromIdx(shstrtabIdx)
	return f
}

func (f *InputFile) GetBytesFromShdr(s *Shdr) []byte {
	end := s.Offset + s.Size
	if uint64(len(f.File.Contents)) < end {
		utils.Fatal(fmt.Sprintf("%s: section header is out of range: %d", f.File.Name, s.Offset))
	}
	return f.File.Contents[s.Offset:end]
}

func (f *InputFile) GetBytesFromIdx(idx int64) []byte {
	utils.Assert(idx < int64(len(f.ElfSections)))
	return f.GetBytesFromShdr(&f.ElfSections[idx])
}

func (f *InputFile) FillUpElfSyms(s *Shdr) {
	f.ElfSyms = readTable[Sym](f.GetBytesFromShdr(s))
}

func (f *InputFile) FindSection(ty uint32) *Shdr {
	for i := range f.ElfSections {
		if f.ElfSections[i].Type == ty {
			return &f.ElfSections[i]
		}
	}
	return nil
}

func (f *InputFile) GetGlobalSyms() []*Symbol {
	return f.Symbols[f.FirstGlobal:]
}
