package linker

import "github.com/ksco/mvld/pkg/utils"

// Link runs every pass over the objects already read into ctx and leaves
// the image in ctx.Buf.
func Link(ctx *Context) {
	CreateInternalFile(ctx)
	ResolveSymbols(ctx)
	RegisterVariantDefinitions(ctx)
	ShareVariantLocals(ctx)
	OrganizeVariants(ctx)
	CreateSyntheticSections(ctx)
	BinSections(ctx)
	ctx.Chunks = append(ctx.Chunks, CollectOutputSections(ctx)...)
	AddSyntheticSymbols(ctx)
	ClaimUnresolvedSymbols(ctx)
	ScanRels(ctx)
	ComputeSectionSizes(ctx)
	SortOutputSections(ctx)

	for _, chunk := range ctx.Chunks {
		chunk.UpdateShdr(ctx)
	}

	ctx.Chunks = utils.RemoveIf[Chunker](ctx.Chunks, func(chunk Chunker) bool {
		return chunk.Kind() != ChunkKindOutputSection && chunk.GetShdr().Size == 0
	})

	shndx := int64(1)
	for i := 0; i < len(ctx.Chunks); i++ {
		if ctx.Chunks[i].Kind() != ChunkKindHeader {
			ctx.Chunks[i].SetShndx(shndx)
			shndx++
		}
	}

	for _, chunk := range ctx.Chunks {
		chunk.UpdateShdr(ctx)
	}

	fileSize := SetOsecOffsets(ctx)
	FixSyntheticSymbols(ctx)
	FinalizeVariantMeta(ctx)

	ctx.Buf = make([]byte, fileSize)
	for _, chunk := range ctx.Chunks {
		chunk.CopyBuf(ctx)
	}

	WriteVariantLogs(ctx)
}
