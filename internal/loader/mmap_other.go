//go:build !unix

package loader

import (
	"io"
	"os"
)

// mmapFile falls back to a plain read on platforms without unix mmap
// support, the way the source's Windows build tag avoids unsafe
// pointer arithmetic without an external library.
func mmapFile(f *os.File, size int64) ([]byte, error) {
	return io.ReadAll(f)
}

func munmapFile(data []byte) error {
	return nil
}
