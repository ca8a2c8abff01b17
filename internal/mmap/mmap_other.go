//go:build !unix

package mmap

import (
	"io"
	"os"
)

// Fallback for platforms without a usable mmap: read the whole file.
func mapFile(f *os.File, size int) ([]byte, bool, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, false, err
	}
	return data, false, nil
}

func unmapFile([]byte) error { return nil }
