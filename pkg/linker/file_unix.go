//go:build unix

package linker

import (
	"os"

	"github.com/ZenLiuCN/fn"
	"golang.org/x/sys/unix"
)

// readContents maps name read-only. Input sections slice into the mapping,
// which stays valid for the rest of the link.
func readContents(name string) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer fn.IgnoreClose(f)

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if st.Size() == 0 {
		return nil, nil
	}
	return unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
}
