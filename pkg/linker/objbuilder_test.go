package linker

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"testing"
)

type testRel struct {
	offset uint64
	typ    elf.R_X86_64
	sym    string
	addend int64
}

type testSection struct {
	name  string
	typ   elf.SectionType
	flags elf.SectionFlag
	align uint64
	data  []byte
	rels  []testRel
}

func (s *testSection) rela(offset uint64, typ elf.R_X86_64, sym string, addend int64) {
	s.rels = append(s.rels, testRel{offset: offset, typ: typ, sym: sym, addend: addend})
}

type testSymbol struct {
	name  string
	sec   string
	value uint64
	size  uint64
	bind  elf.SymBind
	typ   elf.SymType
}

// objBuilder assembles a minimal x86-64 relocatable object.
type objBuilder struct {
	sections []*testSection
	locals   []testSymbol
	globals  []testSymbol
}

func (b *objBuilder) add(name string, typ elf.SectionType, flags elf.SectionFlag, align uint64, data []byte) *testSection {
	s := &testSection{name: name, typ: typ, flags: flags, align: align, data: data}
	b.sections = append(b.sections, s)
	return s
}

func (b *objBuilder) text(name string, align uint64, data []byte) *testSection {
	return b.add(name, elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_EXECINSTR, align, data)
}

func (b *objBuilder) data(name string, align uint64, data []byte) *testSection {
	return b.add(name, elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_WRITE, align, data)
}

func (b *objBuilder) global(name, sec string, value, size uint64) {
	b.globals = append(b.globals, testSymbol{name, sec, value, size, elf.STB_GLOBAL, elf.STT_FUNC})
}

func (b *objBuilder) weak(name, sec string, value, size uint64) {
	b.globals = append(b.globals, testSymbol{name, sec, value, size, elf.STB_WEAK, elf.STT_FUNC})
}

func (b *objBuilder) undef(name string) {
	b.globals = append(b.globals, testSymbol{name: name, bind: elf.STB_GLOBAL, typ: elf.STT_NOTYPE})
}

func (b *objBuilder) object(name, sec string, value, size uint64) {
	b.locals = append(b.locals, testSymbol{name, sec, value, size, elf.STB_LOCAL, elf.STT_OBJECT})
}

func (b *objBuilder) local(name, sec string, value, size uint64) {
	b.locals = append(b.locals, testSymbol{name, sec, value, size, elf.STB_LOCAL, elf.STT_FUNC})
}

func (b *objBuilder) index(t *testing.T, name string) int {
	t.Helper()
	for i, s := range b.sections {
		if s.name == name {
			return i + 1
		}
	}
	t.Fatalf("no section %s", name)
	return 0
}

type strtab []byte

func (s *strtab) add(str string) uint32 {
	if str == "" {
		return 0
	}
	off := uint32(len(*s))
	*s = append(*s, str...)
	*s = append(*s, 0)
	return off
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func (b *objBuilder) bytes(t *testing.T) []byte {
	t.Helper()

	syms := []testSymbol{{}}
	syms = append(syms, b.locals...)
	firstGlobal := len(syms)
	syms = append(syms, b.globals...)
	symIdx := make(map[string]int)
	for i := 1; i < len(syms); i++ {
		symIdx[syms[i].name] = i
	}

	out := make([]byte, 64)
	place := func(data []byte, align int) uint64 {
		for len(out)%align != 0 {
			out = append(out, 0)
		}
		off := uint64(len(out))
		out = append(out, data...)
		return off
	}

	shstr := strtab{0}
	shdrs := []Shdr{{}}
	for _, s := range b.sections {
		shdrs = append(shdrs, Shdr{
			Name:      shstr.add(s.name),
			Type:      uint32(s.typ),
			Flags:     uint64(s.flags),
			Offset:    place(s.data, 8),
			Size:      uint64(len(s.data)),
			AddrAlign: s.align,
		})
	}

	nrela := 0
	for _, s := range b.sections {
		if len(s.rels) > 0 {
			nrela++
		}
	}
	symtabIdx := len(shdrs) + nrela

	for i, s := range b.sections {
		if len(s.rels) == 0 {
			continue
		}
		rels := make([]Rela, 0, len(s.rels))
		for _, r := range s.rels {
			idx, ok := symIdx[r.sym]
			if !ok {
				t.Fatalf("relocation against unknown symbol %s", r.sym)
			}
			rels = append(rels, Rela{Offset: r.offset, Type: uint32(r.typ), Sym: uint32(idx), Addend: r.addend})
		}
		buf := encode(t, rels)
		shdrs = append(shdrs, Shdr{
			Name:      shstr.add(".rela" + s.name),
			Type:      uint32(elf.SHT_RELA),
			Flags:     uint64(elf.SHF_INFO_LINK),
			Offset:    place(buf, 8),
			Size:      uint64(len(buf)),
			Link:      uint32(symtabIdx),
			Info:      uint32(i + 1),
			AddrAlign: 8,
			EntSize:   24,
		})
	}

	str := strtab{0}
	esyms := make([]Sym, 0, len(syms))
	for _, s := range syms {
		shndx := 0
		if s.sec != "" {
			shndx = b.index(t, s.sec)
		}
		esyms = append(esyms, Sym{
			Name:  str.add(s.name),
			Info:  uint8(s.bind)<<4 | uint8(s.typ)&0xf,
			Shndx: uint16(shndx),
			Val:   s.value,
			Size:  s.size,
		})
	}
	symbuf := encode(t, esyms)
	shdrs = append(shdrs, Shdr{
		Name:      shstr.add(".symtab"),
		Type:      uint32(elf.SHT_SYMTAB),
		Offset:    place(symbuf, 8),
		Size:      uint64(len(symbuf)),
		Link:      uint32(symtabIdx + 1),
		Info:      uint32(firstGlobal),
		AddrAlign: 8,
		EntSize:   24,
	})
	shdrs = append(shdrs, Shdr{
		Name:      shstr.add(".strtab"),
		Type:      uint32(elf.SHT_STRTAB),
		Offset:    place(str, 1),
		Size:      uint64(len(str)),
		AddrAlign: 1,
	})
	name := shstr.add(".shstrtab")
	shdrs = append(shdrs, Shdr{
		Name:      name,
		Type:      uint32(elf.SHT_STRTAB),
		Offset:    place(shstr, 1),
		Size:      uint64(len(shstr)),
		AddrAlign: 1,
	})

	shoff := place(encode(t, shdrs), 8)

	ehdr := Ehdr{
		Type:      uint16(elf.ET_REL),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		ShOff:     shoff,
		EhSize:    64,
		ShEntSize: 64,
		ShNum:     uint16(len(shdrs)),
		ShStrndx:  uint16(len(shdrs) - 1),
	}
	WriteMagic(ehdr.Ident[:])
	ehdr.Ident[elf.EI_CLASS] = uint8(elf.ELFCLASS64)
	ehdr.Ident[elf.EI_DATA] = uint8(elf.ELFDATA2LSB)
	ehdr.Ident[elf.EI_VERSION] = uint8(elf.EV_CURRENT)
	copy(out, encode(t, ehdr))
	return out
}

type arMember struct {
	name string
	data []byte
}

func arHeader(name string, size int) string {
	return fmt.Sprintf("%-16s%-12s%-6s%-6s%-8s%-10d`\n", name, "0", "0", "0", "644", size)
}

// archive writes a GNU ar file. Names of 16 bytes or more go to the long
// name table.
func archive(members ...arMember) []byte {
	out := &bytes.Buffer{}
	out.WriteString("!<arch>\n")

	var strtab bytes.Buffer
	names := make([]string, len(members))
	for i, m := range members {
		if len(m.name) < 16 {
			names[i] = m.name + "/"
			continue
		}
		names[i] = fmt.Sprintf("/%d", strtab.Len())
		strtab.WriteString(m.name + "/\n")
	}

	write := func(name string, data []byte) {
		out.WriteString(arHeader(name, len(data)))
		out.Write(data)
		if len(data)%2 == 1 {
			out.WriteByte('\n')
		}
	}
	if strtab.Len() > 0 {
		write("//", strtab.Bytes())
	}
	for i, m := range members {
		write(names[i], m.data)
	}
	return out.Bytes()
}
