package container

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/spinobs/blobstore"
	"github.com/hupe1980/spinobs/codec"
)

// Writer assembles a container in memory and encodes it to bytes.
//
// The upstream solver is the primary producer of container files; the
// Writer exists for fixtures, format tests and the regression-comparison
// harness.
type Writer struct {
	root        *wGroup
	codec       codec.Codec
	compression string
}

type wGroup struct {
	attrs    map[string]attrValue
	datasets map[string]*wDataset
	groups   map[string]*wGroup
}

type wDataset struct {
	kind string
	dims []int
	raw  []byte
}

func newWGroup() *wGroup {
	return &wGroup{
		attrs:    make(map[string]attrValue),
		datasets: make(map[string]*wDataset),
		groups:   make(map[string]*wGroup),
	}
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithCodec selects the TOC codec.
func WithCodec(c codec.Codec) WriterOption {
	return func(w *Writer) { w.codec = c }
}

// WithCompression selects the dataset section compression
// (CompressionNone, CompressionZstd or CompressionLZ4).
func WithCompression(scheme string) WriterOption {
	return func(w *Writer) { w.compression = scheme }
}

// NewWriter creates an empty container writer. The default configuration
// stores a JSON table of contents and zstd-compressed sections.
func NewWriter(opts ...WriterOption) *Writer {
	w := &Writer{
		root:        newWGroup(),
		codec:       codec.Default,
		compression: CompressionZstd,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Group returns the group at the given path, creating missing levels.
func (w *Writer) Group(path ...string) *GroupWriter {
	g := w.root
	for _, name := range path {
		child, ok := g.groups[name]
		if !ok {
			child = newWGroup()
			g.groups[name] = child
		}
		g = child
	}
	return &GroupWriter{g: g}
}

// GroupWriter adds attributes and datasets to one group.
type GroupWriter struct {
	g *wGroup
}

// Group returns (and creates if needed) a child group.
func (gw *GroupWriter) Group(name string) *GroupWriter {
	child, ok := gw.g.groups[name]
	if !ok {
		child = newWGroup()
		gw.g.groups[name] = child
	}
	return &GroupWriter{g: child}
}

// SetFloat64Attr stores a scalar float attribute.
func (gw *GroupWriter) SetFloat64Attr(name string, v float64) {
	gw.g.attrs[name] = attrValue{Kind: "f64", F: v}
}

// SetInt64Attr stores a scalar integer attribute.
func (gw *GroupWriter) SetInt64Attr(name string, v int64) {
	gw.g.attrs[name] = attrValue{Kind: "i64", I: v}
}

// SetStringAttr stores a string attribute.
func (gw *GroupWriter) SetStringAttr(name, v string) {
	gw.g.attrs[name] = attrValue{Kind: "str", S: v}
}

// PutFloat64s stores a float64 dataset with the given dimensions.
func (gw *GroupWriter) PutFloat64s(name string, dims []int, values []float64) error {
	if err := checkDims(dims, len(values)); err != nil {
		return fmt.Errorf("dataset %q: %w", name, err)
	}
	raw := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	gw.g.datasets[name] = &wDataset{kind: KindFloat64, dims: append([]int(nil), dims...), raw: raw}
	return nil
}

// PutInt64s stores an int64 dataset with the given dimensions.
func (gw *GroupWriter) PutInt64s(name string, dims []int, values []int64) error {
	if err := checkDims(dims, len(values)); err != nil {
		return fmt.Errorf("dataset %q: %w", name, err)
	}
	raw := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[8*i:], uint64(v))
	}
	gw.g.datasets[name] = &wDataset{kind: KindInt64, dims: append([]int(nil), dims...), raw: raw}
	return nil
}

// PutBitmap stores a serialized roaring bitmap dataset.
func (gw *GroupWriter) PutBitmap(name string, bm *roaring.Bitmap) error {
	raw, err := bm.ToBytes()
	if err != nil {
		return fmt.Errorf("dataset %q: serialize bitmap: %w", name, err)
	}
	gw.g.datasets[name] = &wDataset{kind: KindBitmap, raw: raw}
	return nil
}

func checkDims(dims []int, n int) error {
	want := 1
	for _, d := range dims {
		if d <= 0 {
			return fmt.Errorf("non-positive dimension %d", d)
		}
		want *= d
	}
	if want != n {
		return fmt.Errorf("dims %v describe %d elements, got %d", dims, want, n)
	}
	return nil
}

// Encode serializes the container to bytes.
func (w *Writer) Encode() ([]byte, error) {
	var sections bytes.Buffer
	root, err := encodeGroup(w.root, &sections, int64(headerSize), w.compression)
	if err != nil {
		return nil, err
	}

	tocBytes, err := w.codec.Marshal(&toc{Root: root})
	if err != nil {
		return nil, fmt.Errorf("container: encode TOC: %w", err)
	}

	var hdr fileHeader
	hdr.Magic = MagicNumber
	hdr.Version = FormatVersion
	copy(hdr.Codec[:], w.codec.Name())
	copy(hdr.Compression[:], w.compression)
	hdr.TOCOffset = uint64(headerSize + sections.Len())
	hdr.TOCLength = uint64(len(tocBytes))

	payload := make([]byte, 0, sections.Len()+len(tocBytes))
	payload = append(payload, sections.Bytes()...)
	payload = append(payload, tocBytes...)
	hdr.Checksum = checksum(payload)

	var out bytes.Buffer
	out.Grow(headerSize + len(payload))
	if err := binary.Write(&out, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("container: encode header: %w", err)
	}
	out.Write(payload)
	return out.Bytes(), nil
}

// encodeGroup appends all dataset sections of g (recursively, in sorted
// name order for determinism) and returns the TOC node.
func encodeGroup(g *wGroup, sections *bytes.Buffer, base int64, compression string) (*groupNode, error) {
	node := newGroupNode()

	for name, a := range g.attrs {
		node.Attrs[name] = a
	}

	for _, name := range sortedKeys(g.datasets) {
		ds := g.datasets[name]
		stored, err := compress(compression, ds.raw)
		if err != nil {
			return nil, err
		}
		node.Datasets[name] = &dsEntry{
			Kind:   ds.kind,
			Dims:   ds.dims,
			Offset: base + int64(sections.Len()),
			Stored: int64(len(stored)),
			Raw:    int64(len(ds.raw)),
		}
		sections.Write(stored)
	}

	for _, name := range sortedKeys(g.groups) {
		child, err := encodeGroup(g.groups[name], sections, base, compression)
		if err != nil {
			return nil, err
		}
		node.Groups[name] = child
	}

	return node, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SaveFile writes the encoded container to a local file.
func (w *Writer) SaveFile(path string) error {
	data, err := w.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Save stores the encoded container under name in a writable blob store.
func (w *Writer) Save(ctx context.Context, store blobstore.Writable, name string) error {
	data, err := w.Encode()
	if err != nil {
		return err
	}
	return store.Put(ctx, name, data)
}
