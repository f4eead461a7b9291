package linker

import (
	"debug/elf"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ksco/mvld/pkg/utils"
	"github.com/ksco/mvld/pkg/variant"
)

type ObjectFile struct {
	InputFile
	Sections []*InputSection

	SymtabSec      *Shdr
	SymtabShndxSec []uint32

	// Group is the variant group the object contributes to, nil for
	// ordinary objects. Slot is -1 until known.
	Group *variant.Group
	Slot  int
}

func NewObjectFile(file *File) *ObjectFile {
	return &ObjectFile{InputFile: *NewInputFile(file), Slot: -1}
}

func (o *ObjectFile) parse(ctx *Context) {
	o.SymtabSec = o.FindSection(uint32(elf.SHT_SYMTAB))
	if o.SymtabSec != nil {
		o.FirstGlobal = int64(o.SymtabSec.Info)

		o.InputFile.FillUpElfSyms(o.SymtabSec)
		o.InputFile.SymbolStrtab = o.InputFile.
			GetBytesFromIdx(int64(o.SymtabSec.Link))
	}

	o.initializeSections(ctx)
	o.initializeSymbols(ctx)
	o.sortRelocations()
	o.skipEhframeSections()
	o.recordVariantSections()
}

func (o *ObjectFile) initializeSections(ctx *Context) {
	o.Sections = make([]*InputSection, len(o.InputFile.ElfSections))
	for i := 0; i < len(o.ElfSections); i++ {
		shdr := &o.ElfSections[i]
		if (shdr.Flags&uint64(SHF_EXCLUDE) != 0) &&
			(shdr.Flags&uint64(elf.SHF_ALLOC) == 0) &&
			(shdr.Type != SHT_LLVM_ADDRSIG) {
			continue
		}

		switch elf.SectionType(shdr.Type) {
		case elf.SHT_GROUP:
			// Members carry SHF_GROUP and are treated as discardable.
		case elf.SHT_SYMTAB_SHNDX:
			o.SymtabShndxSec = readTable[uint32](o.GetBytesFromShdr(shdr))
		case elf.SHT_SYMTAB, elf.SHT_STRTAB, elf.SHT_REL, elf.SHT_RELA,
			elf.SHT_NULL:
		default:
			name := getName(o.InputFile.ShStrtab, shdr.Name)
			if name == ".note.GNU-stack" || strings.HasPrefix(name, ".gnu.warning.") {
				continue
			}
			o.Sections[i] = NewInputSection(ctx, o, name, int64(i))
		}
	}

	for i := 0; i < len(o.InputFile.ElfSections); i++ {
		shdr := &o.InputFile.ElfSections[i]
		if shdr.Type == uint32(elf.SHT_REL) {
			utils.Fatal(fmt.Sprintf("%s: REL relocations are not supported", o.File.Name))
		}
		if shdr.Type != uint32(elf.SHT_RELA) {
			continue
		}

		if shdr.Info >= uint32(len(o.Sections)) {
			utils.Fatal(fmt.Sprintf("%s: invalid relocated section index", o.File.Name))
		}

		if target := o.Sections[shdr.Info]; target != nil {
			utils.Assert(target.RelsecIdx == math.MaxUint32)
			target.RelsecIdx = uint32(i)
		}
	}
}

func (o *ObjectFile) initializeSymbols(ctx *Context) {
	if o.SymtabSec == nil {
		return
	}

	o.LocalSyms = make([]Symbol, o.FirstGlobal)
	for i := range o.LocalSyms {
		o.LocalSyms[i] = *NewSymbol("")
	}
	o.LocalSyms[0].File = o
	o.LocalSyms[0].SymIdx = 0

	for i := int64(1); i < o.FirstGlobal; i++ {
		esym := &o.ElfSyms[i]
		if esym.IsCommon() {
			utils.Fatal(fmt.Sprintf("%s: common local symbol", o.File.Name))
		}

		name := getName(o.SymbolStrtab, esym.Name)
		if name == "" && esym.Type() == uint8(elf.STT_SECTION) {
			if sec := o.GetSection(esym, i); sec != nil {
				name = sec.Name()
			}
		}

		sym := &o.LocalSyms[i]
		sym.Name = name
		sym.File = o
		sym.Value = esym.Val
		sym.SymIdx = int32(i)

		if !esym.IsAbs() {
			sym.SetInputSection(o.Sections[o.GetShndx(esym, i)])
		}
	}

	o.Symbols = make([]*Symbol, len(o.ElfSyms))
	for i := int64(0); i < o.FirstGlobal; i++ {
		o.Symbols[i] = &o.LocalSyms[i]
	}

	for i := o.FirstGlobal; i < int64(len(o.ElfSyms)); i++ {
		esym := &o.ElfSyms[i]
		name := getName(o.SymbolStrtab, esym.Name)
		if esym.IsCommon() {
			utils.Fatal(fmt.Sprintf("%s: common symbol %s is not supported, build with -fno-common",
				o.File.Name, name))
		}
		o.Symbols[i] = GetSymbolByName(ctx, name)
	}
}

func (o *ObjectFile) sortRelocations() {
	for _, isec := range o.Sections {
		if isec == nil || !isec.IsAlive || isec.Shdr().Flags&uint64(elf.SHF_ALLOC) == 0 {
			continue
		}

		rels := isec.GetRels()
		sort.SliceStable(rels, func(i, j int) bool {
			return rels[i].Offset < rels[j].Offset
		})
	}
}

func (o *ObjectFile) skipEhframeSections() {
	for _, isec := range o.Sections {
		if isec != nil && isec.IsAlive && isec.Name() == ".eh_frame" {
			isec.IsAlive = false
		}
	}
}

// recordVariantSections hands the object's sections to its group's matcher
// in link order. An object without a configured slot takes the slot its
// first section lands in.
func (o *ObjectFile) recordVariantSections() {
	if o.Group == nil {
		return
	}

	for _, isec := range o.Sections {
		if isec == nil || !isec.IsAlive || isec.Shdr().Flags&uint64(elf.SHF_ALLOC) == 0 {
			continue
		}
		if !o.Group.Matcher.Record(isec, o.Slot) {
			continue
		}
		if o.Slot < 0 {
			o.Slot, _ = o.Group.Matcher.Owner(isec)
		}
	}
}

func (o *ObjectFile) GetSection(esym *Sym, idx int64) *InputSection {
	return o.Sections[o.GetShndx(esym, idx)]
}

func (o *ObjectFile) GetShndx(esym *Sym, idx int64) int64 {
	utils.Assert(idx >= 0 && idx < int64(len(o.ElfSyms)))
	if esym.Shndx == uint16(elf.SHN_XINDEX) {
		return int64(o.SymtabShndxSec[idx])
	}
	return int64(esym.Shndx)
}

func (o *ObjectFile) ResolveSymbols() {
	for i := o.FirstGlobal; i < int64(len(o.ElfSyms)); i++ {
		sym := o.Symbols[i]
		esym := &o.ElfSyms[i]

		if esym.IsUndef() {
			continue
		}

		var isec *InputSection
		if !esym.IsAbs() {
			isec = o.GetSection(esym, i)
			if isec == nil {
				continue
			}
		}

		if GetRank(o, esym, !o.IsAlive) < sym.GetRank() {
			sym.File = o
			sym.SetInputSection(isec)
			sym.Value = esym.Val
			sym.SymIdx = int32(i)
			sym.IsWeak = esym.IsWeak()
		}
	}
}

// MarkLiveObjects pulls in the archive members that define a symbol o
// leaves undefined.
func (o *ObjectFile) MarkLiveObjects(feeder func(*ObjectFile)) {
	utils.Assert(o.IsAlive)

	for i := o.FirstGlobal; i < int64(len(o.ElfSyms)); i++ {
		esym := &o.ElfSyms[i]
		sym := o.Symbols[i]
		if esym.IsWeak() || sym.File == nil {
			continue
		}

		if esym.IsUndef() && !sym.File.IsAlive {
			sym.File.IsAlive = true
			feeder(sym.File)
		}
	}
}

func (o *ObjectFile) ClearSymbols() {
	for _, sym := range o.Symbols[o.FirstGlobal:] {
		if sym.File == o {
			sym.Clear()
		}
	}
}

// RegisterVariantDefinitions adds every global defined in a collected
// section to the group's duplicate chains.
func (o *ObjectFile) RegisterVariantDefinitions() {
	if o.Group == nil {
		return
	}

	for i := o.FirstGlobal; i < int64(len(o.ElfSyms)); i++ {
		esym := &o.ElfSyms[i]
		if esym.IsUndef() || esym.IsAbs() {
			continue
		}

		isec := o.GetSection(esym, i)
		if isec == nil {
			continue
		}
		if _, ok := o.Group.Matcher.Owner(isec); !ok {
			continue
		}

		o.Group.AddDefinition(o.Symbols[i].Name, isec, esym.Val, esym.Size,
			o.Group.SlotOf(isec, o.Slot), esym.IsWeak())
	}
}

// findGlobal returns the symbol table index of the global name defined in
// isec, -1 if there is none.
func (o *ObjectFile) findGlobal(name string, isec *InputSection) int32 {
	for i := o.FirstGlobal; i < int64(len(o.ElfSyms)); i++ {
		esym := &o.ElfSyms[i]
		if esym.IsUndef() || esym.IsAbs() || o.Symbols[i].Name != name {
			continue
		}
		if o.GetSection(esym, i) == isec {
			return int32(i)
		}
	}
	return -1
}

// ShareLocals points local data symbols of non-default variants at the
// slot-0 copy of the same object.
func (o *ObjectFile) ShareLocals(record bool) {
	if o.Group == nil {
		return
	}

	for i := int64(1); i < o.FirstGlobal; i++ {
		esym := &o.ElfSyms[i]
		sym := o.Symbols[i]
		isec := sym.InputSection
		if esym.Type() != uint8(elf.STT_OBJECT) || isec == nil || sym.Name == "" ||
			!variant.IsSharedDataSection(isec.Name()) {
			continue
		}

		key := variant.LocalKey{
			Name:    sym.Name,
			Bind:    esym.Bind(),
			Type:    esym.Type(),
			Size:    esym.Size,
			Section: isec.Name(),
			Value:   esym.Val,
		}
		if record {
			if o.Slot == 0 {
				o.Group.RecordLocal(key, isec)
			}
			continue
		}
		if o.Slot == 0 {
			continue
		}
		if target, ok := o.Group.SharedLocal(key); ok {
			sym.SetInputSection(target.(*InputSection))
		}
	}
}

// RedirectMergedCopies moves the symbols defined in a merged-away copy of
// an equal column onto the slot-0 section that survived the merge.
func (o *ObjectFile) RedirectMergedCopies() {
	if o.Group == nil {
		return
	}

	for i := 1; i < len(o.Symbols); i++ {
		sym := o.Symbols[i]
		if sym.File != o || sym.InputSection == nil || sym.InputSection.File != o {
			continue
		}
		if target, ok := o.Group.Survivor(sym.InputSection); ok {
			sym.SetInputSection(target.(*InputSection))
		}
	}
}

func (o *ObjectFile) ClaimUnresolvedSymbols() {
	for i := o.FirstGlobal; i < int64(len(o.ElfSyms)); i++ {
		esym := &o.ElfSyms[i]
		if !esym.IsUndef() {
			continue
		}

		sym := o.Symbols[i]
		if sym.File != nil && (!sym.ElfSym().IsUndef() || sym.File.Priority <= o.Priority) {
			continue
		}

		if esym.IsUndefWeak() {
			sym.File = o
			sym.InputSection = nil
			sym.OutputSection = nil
			sym.Value = 0
			sym.SymIdx = int32(i)
			sym.IsWeak = false
		}
	}
}

func (o *ObjectFile) ScanRelocations(ctx *Context) {
	for _, isec := range o.Sections {
		if isec != nil && isec.IsAlive && isec.Shdr().Flags&uint64(elf.SHF_ALLOC) != 0 {
			isec.ScanRelocations(ctx)
		}
	}
}
