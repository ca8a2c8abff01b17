// Package mmap provides read-only memory mapping of local files, with a
// portable fallback that reads the file into memory.
package mmap

import (
	"os"
	"sync"
)

// Mapping is a read-only view of a file's contents.
type Mapping struct {
	mu     sync.Mutex
	data   []byte
	mapped bool
	closed bool
}

// Open maps the file at path read-only. Empty files yield an empty,
// valid mapping. On platforms without mmap support the file is read
// into memory instead.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return &Mapping{}, nil
	}

	data, mapped, err := mapFile(f, int(size))
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data, mapped: mapped}, nil
}

// Bytes returns the mapped contents. The slice is valid until Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Close releases the mapping. Safe to call more than once.
func (m *Mapping) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.mapped && m.data != nil {
		err := unmapFile(m.data)
		m.data = nil
		return err
	}
	m.data = nil
	return nil
}
