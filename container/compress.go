package container

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// compress encodes a dataset section with the named scheme.
func compress(scheme string, data []byte) ([]byte, error) {
	switch scheme {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("container: init zstd: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("container: lz4 write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("container: lz4 close: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, scheme)
	}
}

// decompress decodes a dataset section. rawLen is the expected
// uncompressed length from the TOC.
func decompress(scheme string, data []byte, rawLen int64) ([]byte, error) {
	switch scheme {
	case CompressionNone:
		if int64(len(data)) != rawLen {
			return nil, fmt.Errorf("%w: section length %d, want %d", ErrMalformed, len(data), rawLen)
		}
		return data, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("container: init zstd: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrMalformed, err)
		}
		if int64(len(out)) != rawLen {
			return nil, fmt.Errorf("%w: zstd section decoded to %d bytes, want %d", ErrMalformed, len(out), rawLen)
		}
		return out, nil
	case CompressionLZ4:
		out := make([]byte, rawLen)
		r := lz4.NewReader(bytes.NewReader(data))
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrMalformed, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, scheme)
	}
}
