package linker

import (
	"debug/elf"
	"encoding/binary"
)

type MachineType = int8

const (
	MachineTypeNone   MachineType = iota
	MachineTypeX86_64 MachineType = iota
)

func GetMachineTypeFromContents(contents []byte) MachineType {
	if GetFileType(contents) != FileTypeObject {
		return MachineTypeNone
	}

	machine := elf.Machine(binary.LittleEndian.Uint16(contents[18:]))
	if machine == elf.EM_X86_64 && contents[elf.EI_CLASS] == byte(elf.ELFCLASS64) {
		return MachineTypeX86_64
	}
	return MachineTypeNone
}

// ParseEmulation maps a -m argument to a machine type.
func ParseEmulation(name string) MachineType {
	switch name {
	case "elf_x86_64":
		return MachineTypeX86_64
	}
	return MachineTypeNone
}

type MachineTypeStringer struct {
	MachineType
}

func (mts MachineTypeStringer) String() string {
	switch mts.MachineType {
	case MachineTypeX86_64:
		return "x86_64"
	}
	return "none"
}
