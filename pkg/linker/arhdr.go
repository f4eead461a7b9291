package linker

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ksco/mvld/pkg/utils"
)

// ArHdr is the 60-byte header in front of every archive member.
type ArHdr struct {
	Name [16]byte
	Date [12]byte
	Uid  [6]byte
	Gid  [6]byte
	Mode [8]byte
	Size [10]byte
	Fmag [2]byte
}

func (a *ArHdr) hasPrefix(s string) bool {
	return bytes.HasPrefix(a.Name[:], []byte(s))
}

// IsStrtab reports the GNU long name table "//".
func (a *ArHdr) IsStrtab() bool {
	return a.hasPrefix("// ")
}

// IsSymtab reports the archive symbol index, which mvld does not need:
// members are pulled in by scanning their own symbol tables.
func (a *ArHdr) IsSymtab() bool {
	return a.hasPrefix("/ ") || a.hasPrefix("/SYM64/ ")
}

func (a *ArHdr) field(b []byte) int {
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		utils.Fatal(fmt.Sprintf("malformed archive header %q: %v", a.Name[:], err))
	}
	return n
}

func (a *ArHdr) GetSize() int {
	return a.field(a.Size[:])
}

// ReadName decodes the member name. A BSD name ("#1/len") is stored at
// the start of body, which is advanced past it.
func (a *ArHdr) ReadName(strtab []byte, body *[]byte) string {
	switch {
	case a.hasPrefix("#1/"):
		n := a.field(a.Name[3:])
		name := (*body)[:n]
		*body = (*body)[n:]
		if end := bytes.IndexByte(name, 0); end != -1 {
			name = name[:end]
		}
		return string(name)
	case a.hasPrefix("/"):
		start := a.field(a.Name[1:])
		end := bytes.Index(strtab[start:], []byte("/\n"))
		if end == -1 {
			utils.Fatal("archive long name is not terminated")
		}
		return string(strtab[start : start+end])
	}

	if end := bytes.IndexByte(a.Name[:], '/'); end != -1 {
		return string(a.Name[:end])
	}
	return strings.TrimRight(string(a.Name[:]), " ")
}
