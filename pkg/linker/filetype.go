package linker

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/ksco/mvld/pkg/utils"
)

type FileType = int8

const (
	FileTypeUnknown FileType = iota
	FileTypeEmpty   FileType = iota
	FileTypeObject  FileType = iota
	FileTypeDso     FileType = iota
	FileTypeAr      FileType = iota
)

func GetFileType(contents []byte) FileType {
	if len(contents) == 0 {
		return FileTypeEmpty
	}

	if CheckMagic(contents) && len(contents) >= 18 {
		switch elf.Type(binary.LittleEndian.Uint16(contents[16:])) {
		case elf.ET_REL:
			return FileTypeObject
		case elf.ET_DYN:
			return FileTypeDso
		}
		return FileTypeUnknown
	}

	if bytes.HasPrefix(contents, []byte("!<arch>\n")) ||
		bytes.HasPrefix(contents, []byte("!<thin>\n")) {
		return FileTypeAr
	}
	return FileTypeUnknown
}

func CheckFileCompatibility(ctx *Context, file *File) {
	mt := GetMachineTypeFromContents(file.Contents)
	if mt != ctx.Arg.Emulation {
		utils.Fatal(fmt.Sprintf("%s: incompatible file type %s, expected %s",
			file.Name, MachineTypeStringer{mt}, MachineTypeStringer{ctx.Arg.Emulation}))
	}
}
