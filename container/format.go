// Package container reads and writes the persisted simulation result
// container: a hierarchical, self-describing binary file of groups with
// named attributes and multidimensional numeric datasets.
//
// File layout:
//
//	header (64 bytes) | dataset sections ... | table of contents
//
// The header names the codec used for the table of contents and the
// compression applied to dataset sections, and carries a CRC32 over
// everything after the header. Dataset sections hold little-endian
// float64/int64/byte runs, or a serialized roaring bitmap, individually
// compressed.
package container

import (
	"errors"
	"fmt"
)

const (
	// MagicNumber identifies container files (ASCII: "SPN1").
	MagicNumber = 0x53504E31
	// FormatVersion is the current file format version (v1.0.0).
	FormatVersion = 0x00010000

	// headerSize is the fixed byte length of the file header.
	headerSize = 64
)

// Dataset element kinds.
const (
	KindFloat64 = "f64"
	KindInt64   = "i64"
	KindBitmap  = "bitmap"
)

// Compression names stored in the header.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

var (
	// ErrInvalidMagic is returned when the file does not start with the
	// container magic number.
	ErrInvalidMagic = errors.New("container: invalid magic number")

	// ErrInvalidVersion is returned for unsupported format versions.
	ErrInvalidVersion = errors.New("container: unsupported format version")

	// ErrUnknownCodec is returned when the header names a codec this
	// build does not provide.
	ErrUnknownCodec = errors.New("container: unknown codec")

	// ErrUnknownCompression is returned when the header names an
	// unsupported compression scheme.
	ErrUnknownCompression = errors.New("container: unknown compression")

	// ErrMalformed is returned when the file is structurally broken
	// (truncated header, out-of-range section offsets, undecodable TOC).
	ErrMalformed = errors.New("container: malformed file")
)

// fileHeader is the fixed 64-byte header at the start of every container.
type fileHeader struct {
	Magic       uint32
	Version     uint32
	Codec       [8]byte
	Compression [8]byte
	TOCOffset   uint64
	TOCLength   uint64
	Checksum    uint32 // CRC32 (IEEE) of all bytes after the header
	Reserved    [20]byte
}

// SchemaError indicates that an expected group, dataset or attribute is
// absent or has the wrong shape.
type SchemaError struct {
	Path   string // slash-separated location, e.g. "SU2CorZZ/meta/basis"
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("container: schema violation at %q: %s", e.Path, e.Reason)
}

// ChecksumMismatchError is returned when payload verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("container: checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// attrValue is the TOC representation of a scalar attribute.
type attrValue struct {
	Kind string  `json:"kind"` // "f64" | "i64" | "str"
	F    float64 `json:"f,omitempty"`
	I    int64   `json:"i,omitempty"`
	S    string  `json:"s,omitempty"`
}

// dsEntry is the TOC descriptor of one dataset section.
type dsEntry struct {
	Kind   string `json:"kind"`
	Dims   []int  `json:"dims,omitempty"`
	Offset int64  `json:"offset"`
	Stored int64  `json:"stored"`
	Raw    int64  `json:"raw"`
}

// groupNode is the TOC representation of a group.
type groupNode struct {
	Attrs    map[string]attrValue  `json:"attrs,omitempty"`
	Datasets map[string]*dsEntry   `json:"datasets,omitempty"`
	Groups   map[string]*groupNode `json:"groups,omitempty"`
}

func newGroupNode() *groupNode {
	return &groupNode{
		Attrs:    make(map[string]attrValue),
		Datasets: make(map[string]*dsEntry),
		Groups:   make(map[string]*groupNode),
	}
}

// toc is the table of contents stored at the end of the file.
type toc struct {
	Root *groupNode `json:"root"`
}
