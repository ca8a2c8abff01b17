package container

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/spinobs/blobstore"
	"github.com/hupe1980/spinobs/codec"
)

// Container is an open, read-only result container.
//
// All accessors are pure reads over the decoded file image and are safe
// for concurrent use; repeated calls return consistent values for the
// lifetime of the handle.
type Container struct {
	data        []byte
	toc         *toc
	compression string
	blob        blobstore.Blob // nil when decoded from a byte slice
}

// Open reads a container from a blob store.
func Open(ctx context.Context, store blobstore.BlobStore, name string) (*Container, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("container: open %q: %w", name, err)
	}
	data, err := blobstore.ReadAll(blob)
	if err != nil {
		blob.Close()
		return nil, fmt.Errorf("container: read %q: %w", name, err)
	}
	c, err := Decode(data)
	if err != nil {
		blob.Close()
		return nil, err
	}
	c.blob = blob
	return c, nil
}

// OpenFile reads a container from a local file path.
func OpenFile(ctx context.Context, path string) (*Container, error) {
	return Open(ctx, blobstore.NewLocalStore(""), path)
}

// Decode parses an in-memory container image. The slice is retained;
// callers must not mutate it afterwards.
func Decode(data []byte) (*Container, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, want at least %d", ErrMalformed, len(data), headerSize)
	}

	var hdr fileHeader
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	if hdr.Magic != MagicNumber {
		return nil, ErrInvalidMagic
	}
	if hdr.Version != FormatVersion {
		return nil, fmt.Errorf("%w: 0x%08x", ErrInvalidVersion, hdr.Version)
	}

	if err := verifyChecksum(hdr.Checksum, data[headerSize:]); err != nil {
		return nil, err
	}

	codecName := trimZero(hdr.Codec[:])
	cdc, ok := codec.ByName(codecName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codecName)
	}

	compression := trimZero(hdr.Compression[:])
	switch compression {
	case CompressionNone, CompressionZstd, CompressionLZ4:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, compression)
	}

	tocStart, tocLen := int64(hdr.TOCOffset), int64(hdr.TOCLength)
	if tocStart < headerSize || tocLen < 0 || tocStart+tocLen > int64(len(data)) {
		return nil, fmt.Errorf("%w: TOC range [%d, %d) out of bounds", ErrMalformed, tocStart, tocStart+tocLen)
	}

	var t toc
	if err := cdc.Unmarshal(data[tocStart:tocStart+tocLen], &t); err != nil {
		return nil, fmt.Errorf("%w: TOC: %v", ErrMalformed, err)
	}
	if t.Root == nil {
		return nil, fmt.Errorf("%w: TOC has no root group", ErrMalformed)
	}

	return &Container{data: data, toc: &t, compression: compression}, nil
}

func trimZero(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}

// Close releases the underlying blob, if any.
func (c *Container) Close() error {
	if c.blob == nil {
		return nil
	}
	err := c.blob.Close()
	c.blob = nil
	return err
}

// Root returns the root group.
func (c *Container) Root() *Group {
	return &Group{c: c, node: c.toc.Root, path: ""}
}

// Group descends to the group at the given path from the root.
func (c *Container) Group(path ...string) (*Group, error) {
	g := c.Root()
	var err error
	for _, name := range path {
		if g, err = g.Group(name); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Group is a read-only view of one group in the container hierarchy.
type Group struct {
	c    *Container
	node *groupNode
	path string
}

func (g *Group) childPath(name string) string {
	if g.path == "" {
		return name
	}
	return g.path + "/" + name
}

// Path returns the slash-separated location of the group.
func (g *Group) Path() string { return g.path }

// Group returns the named child group.
func (g *Group) Group(name string) (*Group, error) {
	child, ok := g.node.Groups[name]
	if !ok {
		return nil, &SchemaError{Path: g.childPath(name), Reason: "group not found"}
	}
	return &Group{c: g.c, node: child, path: g.childPath(name)}, nil
}

// Groups lists child group names in sorted order.
func (g *Group) Groups() []string {
	return sortedKeys(g.node.Groups)
}

// Datasets lists dataset names in sorted order.
func (g *Group) Datasets() []string {
	return sortedKeys(g.node.Datasets)
}

// Attrs lists attribute names in sorted order.
func (g *Group) Attrs() []string {
	return sortedKeys(g.node.Attrs)
}

// Float64Attr returns a scalar float attribute.
func (g *Group) Float64Attr(name string) (float64, error) {
	a, ok := g.node.Attrs[name]
	if !ok {
		return 0, &SchemaError{Path: g.childPath(name), Reason: "attribute not found"}
	}
	switch a.Kind {
	case "f64":
		return a.F, nil
	case "i64":
		return float64(a.I), nil
	default:
		return 0, &SchemaError{Path: g.childPath(name), Reason: fmt.Sprintf("attribute kind %q is not numeric", a.Kind)}
	}
}

// Int64Attr returns a scalar integer attribute.
func (g *Group) Int64Attr(name string) (int64, error) {
	a, ok := g.node.Attrs[name]
	if !ok {
		return 0, &SchemaError{Path: g.childPath(name), Reason: "attribute not found"}
	}
	if a.Kind != "i64" {
		return 0, &SchemaError{Path: g.childPath(name), Reason: fmt.Sprintf("attribute kind %q is not i64", a.Kind)}
	}
	return a.I, nil
}

// StringAttr returns a string attribute.
func (g *Group) StringAttr(name string) (string, error) {
	a, ok := g.node.Attrs[name]
	if !ok {
		return "", &SchemaError{Path: g.childPath(name), Reason: "attribute not found"}
	}
	if a.Kind != "str" {
		return "", &SchemaError{Path: g.childPath(name), Reason: fmt.Sprintf("attribute kind %q is not str", a.Kind)}
	}
	return a.S, nil
}

// Dataset returns the named dataset descriptor.
func (g *Group) Dataset(name string) (*Dataset, error) {
	e, ok := g.node.Datasets[name]
	if !ok {
		return nil, &SchemaError{Path: g.childPath(name), Reason: "dataset not found"}
	}
	return &Dataset{c: g.c, entry: e, path: g.childPath(name)}, nil
}

// Dataset is a read-only handle to one numeric dataset.
type Dataset struct {
	c     *Container
	entry *dsEntry
	path  string
}

// Kind returns the element kind (KindFloat64, KindInt64 or KindBitmap).
func (d *Dataset) Kind() string { return d.entry.Kind }

// Dims returns the dataset dimensions. Bitmap datasets have none.
func (d *Dataset) Dims() []int {
	return append([]int(nil), d.entry.Dims...)
}

// Len returns the number of elements described by the dimensions.
func (d *Dataset) Len() int {
	n := 1
	for _, dim := range d.entry.Dims {
		n *= dim
	}
	return n
}

func (d *Dataset) section() ([]byte, error) {
	off, stored := d.entry.Offset, d.entry.Stored
	if off < headerSize || stored < 0 || off+stored > int64(len(d.c.data)) {
		return nil, fmt.Errorf("%w: dataset %q section [%d, %d) out of bounds", ErrMalformed, d.path, off, off+stored)
	}
	return decompress(d.c.compression, d.c.data[off:off+stored], d.entry.Raw)
}

// Float64s decodes the dataset as little-endian float64 values in
// row-major order.
func (d *Dataset) Float64s() ([]float64, error) {
	if d.entry.Kind != KindFloat64 {
		return nil, &SchemaError{Path: d.path, Reason: fmt.Sprintf("dataset kind %q is not %s", d.entry.Kind, KindFloat64)}
	}
	raw, err := d.section()
	if err != nil {
		return nil, err
	}
	if len(raw)%8 != 0 || len(raw)/8 != d.Len() {
		return nil, fmt.Errorf("%w: dataset %q has %d bytes for %d elements", ErrMalformed, d.path, len(raw), d.Len())
	}
	out := make([]float64, len(raw)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return out, nil
}

// Int64s decodes the dataset as little-endian int64 values.
func (d *Dataset) Int64s() ([]int64, error) {
	if d.entry.Kind != KindInt64 {
		return nil, &SchemaError{Path: d.path, Reason: fmt.Sprintf("dataset kind %q is not %s", d.entry.Kind, KindInt64)}
	}
	raw, err := d.section()
	if err != nil {
		return nil, err
	}
	if len(raw)%8 != 0 || len(raw)/8 != d.Len() {
		return nil, fmt.Errorf("%w: dataset %q has %d bytes for %d elements", ErrMalformed, d.path, len(raw), d.Len())
	}
	out := make([]int64, len(raw)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return out, nil
}

// Bitmap decodes the dataset as a roaring bitmap.
func (d *Dataset) Bitmap() (*roaring.Bitmap, error) {
	if d.entry.Kind != KindBitmap {
		return nil, &SchemaError{Path: d.path, Reason: fmt.Sprintf("dataset kind %q is not %s", d.entry.Kind, KindBitmap)}
	}
	raw, err := d.section()
	if err != nil {
		return nil, err
	}
	bm := roaring.New()
	if err := bm.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("%w: dataset %q: %v", ErrMalformed, d.path, err)
	}
	return bm, nil
}
