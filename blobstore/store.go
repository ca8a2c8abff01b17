// Package blobstore abstracts access to persisted result containers,
// whether they live on the local file system, in memory, or in object
// storage (S3, MinIO).
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for reading immutable data blobs.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// Mappable is an optional interface for Blobs that expose their contents
// as a byte slice without copying. The slice is valid until Close.
type Mappable interface {
	Bytes() ([]byte, error)
}

// Writable is an optional interface for stores that can also persist
// blobs. Used by the container writer and by test fixtures.
type Writable interface {
	// Put writes a blob atomically under the given name.
	Put(ctx context.Context, name string, data []byte) error
}

// ReadAll reads a blob's full contents, using the zero-copy path when the
// blob supports it.
func ReadAll(b Blob) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		return m.Bytes()
	}
	data := make([]byte, b.Size())
	if len(data) == 0 {
		return data, nil
	}
	n, err := b.ReadAt(data, 0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return data[:n], nil
}
