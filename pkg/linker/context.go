package linker

import (
	"github.com/ksco/mvld/pkg/utils"
	"github.com/ksco/mvld/pkg/variant"
)

type ContextArg struct {
	Output    string
	Emulation MachineType
	Entry     string

	Debug  bool
	LogDir string
}

type Context struct {
	Arg ContextArg

	SymbolMap map[string]*Symbol

	Ehdr     *OutputEhdr
	Shdr     *OutputShdr
	Phdr     *OutputPhdr
	Got      *GotSection
	ShStrtab *ShStrtabSection

	Buf []byte

	FilePriority int64
	Visited      utils.MapSet[string]

	Objs []*ObjectFile

	InternalObj   *ObjectFile
	InternalEsyms []Sym

	Chunks []Chunker

	OutputSections []*OutputSection

	Variants *variant.Session
	Overlays []*OutputSection
	Metas    []*MetaSection
	jumpSyms []jumpSym

	__InitArrayStart    *Symbol
	__InitArrayEnd      *Symbol
	__FiniArrayStart    *Symbol
	__FiniArrayEnd      *Symbol
	__PreinitArrayStart *Symbol
	__PreinitArrayEnd   *Symbol
	windows             []windowSyms
}

func NewContext() *Context {
	return &Context{
		Arg: ContextArg{
			Emulation: MachineTypeNone,
			Output:    "a.out",
		},
		SymbolMap:    make(map[string]*Symbol),
		Visited:      utils.NewMapSet[string](),
		FilePriority: 10000,
		Variants:     variant.NewSession(),
	}
}

// Output implements variant.Outputs over the ordinary output sections.
func (ctx *Context) Output(name string) variant.Destination {
	for _, osec := range ctx.OutputSections {
		if osec.Name == name {
			return osec
		}
	}
	return nil
}
