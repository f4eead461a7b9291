package linker

import (
	"fmt"

	"github.com/ksco/mvld/pkg/utils"
)

type File struct {
	Name     string
	Contents []byte
	// Parent is the archive a member was read from.
	Parent *File
}

func NewFile(name string, contents []byte) *File {
	return &File{Name: name, Contents: contents}
}

func MustNewFile(filename string) *File {
	contents, err := readContents(filename)
	if err != nil {
		utils.Fatal(fmt.Sprintf("cannot open %s: %v", filename, err))
	}
	return NewFile(filename, contents)
}
