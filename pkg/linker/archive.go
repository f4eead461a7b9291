package linker

import (
	"bytes"
	"fmt"
	"unsafe"

	"github.com/ksco/mvld/pkg/utils"
)

// ReadArchiveMembers splits a regular archive into its members. Member
// names read "archive(member)".
func ReadArchiveMembers(file *File) []*File {
	if bytes.HasPrefix(file.Contents, []byte("!<thin>\n")) {
		utils.Fatal(fmt.Sprintf("%s: thin archives are not supported", file.Name))
	}

	hdrSize := int(unsafe.Sizeof(ArHdr{}))
	var strtab []byte
	var members []*File

	pos := 8
	for len(file.Contents)-pos >= hdrSize {
		hdr := utils.Read[ArHdr](file.Contents[pos:])
		start := pos + hdrSize
		end := start + hdr.GetSize()
		if end > len(file.Contents) {
			utils.Fatal(fmt.Sprintf("%s: truncated archive member", file.Name))
		}
		pos = end + end%2

		switch {
		case hdr.IsStrtab():
			strtab = file.Contents[start:end]
			continue
		case hdr.IsSymtab():
			continue
		}

		body := file.Contents[start:end]
		name := hdr.ReadName(strtab, &body)
		if name == "__.SYMDEF" || name == "__.SYMDEF SORTED" {
			continue
		}

		members = append(members, &File{
			Name:     fmt.Sprintf("%s(%s)", file.Name, name),
			Contents: body,
			Parent:   file,
		})
	}
	return members
}
