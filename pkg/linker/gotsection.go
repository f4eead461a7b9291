package linker

import (
	"debug/elf"

	"github.com/ksco/mvld/pkg/utils"
)

// GotSection holds one absolute address per symbol reached through a
// GOT-relative relocation. The image is static, so every slot is filled at
// link time.
type GotSection struct {
	Chunk
	GotSyms []*Symbol
}

func NewGotSection() *GotSection {
	g := &GotSection{Chunk: NewChunk()}
	g.Name = ".got"
	g.Shdr.Type = uint32(elf.SHT_PROGBITS)
	g.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	g.Shdr.AddrAlign = 8
	return g
}

func (g *GotSection) AddGotSymbol(sym *Symbol) {
	if sym.GotIdx != -1 {
		return
	}
	sym.GotIdx = int32(len(g.GotSyms))
	g.Shdr.Size += 8
	g.GotSyms = append(g.GotSyms, sym)
}

func (g *GotSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[g.Shdr.Offset:]
	for _, sym := range g.GotSyms {
		utils.Write[uint64](buf[sym.GotIdx*8:], sym.GetAddr())
	}
}
