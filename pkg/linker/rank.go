package linker

// GetRank orders competing definitions: strong before weak before common,
// then by file priority. Lower wins. Definitions in archive members that are
// not pulled in yet rank behind every loaded one.
func GetRank(file *ObjectFile, esym *Sym, isLazy bool) uint64 {
	rank := uint64(1)
	switch {
	case esym.IsCommon():
		rank = 3
	case esym.IsWeak():
		rank = 2
	}
	if isLazy {
		rank += 3
	}
	return rank<<24 + uint64(file.Priority)
}
