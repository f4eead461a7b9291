//go:build !unix

package linker

import "os"

func readContents(name string) ([]byte, error) {
	return os.ReadFile(name)
}
