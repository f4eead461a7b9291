package linker

import "debug/elf"

// ShStrtabSection names every section of the output.
type ShStrtabSection struct {
	Chunk
}

func NewShStrtabSection() *ShStrtabSection {
	s := &ShStrtabSection{Chunk: NewChunk()}
	s.Name = ".shstrtab"
	s.Shdr.Type = uint32(elf.SHT_STRTAB)
	return s
}

func (s *ShStrtabSection) UpdateShdr(ctx *Context) {
	size := uint64(1)
	for _, chunk := range ctx.Chunks {
		if chunk.GetShndx() > 0 {
			chunk.GetShdr().Name = uint32(size)
			size += uint64(len(chunk.GetName())) + 1
		}
	}
	s.Shdr.Size = size
}

func (s *ShStrtabSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[s.Shdr.Offset:]
	buf[0] = 0
	for _, chunk := range ctx.Chunks {
		if chunk.GetShndx() > 0 {
			writeString(buf[chunk.GetShdr().Name:], chunk.GetName())
		}
	}
}
