package compress

import (
	"fmt"
	"io"

	"github.com/zshipko/bindle-file/errs"
	"github.com/zshipko/bindle-file/format"
)

// Compressor compresses a complete entry payload.
//
// Memory management:
//   - Returned slice may alias the input (NoOpCompressor returns it as-is)
//   - Input slice is not modified
//   - Internal buffers may be reused for efficiency
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a payload previously produced by the matching
// Compressor. It validates the data format and returns an error if the data
// is corrupted or uses an incompatible format.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// StreamWriter compresses bytes written to it onto an underlying writer.
// Close flushes any buffered input and terminates the stream.
type StreamWriter interface {
	io.Writer
	Close() error
}

// StreamReader decompresses bytes from an underlying stored-byte reader.
// Close releases decoder resources; it does not close the underlying reader.
type StreamReader interface {
	io.Reader
	Close() error
}

// autoRatio is the Auto selector threshold: zstd output at or above 97% of
// the input size is discarded in favor of raw storage.
const autoRatio = 0.97

var builtinCodecs = map[format.CompType]Codec{
	format.CompTypeRaw:  NewNoOpCompressor(),
	format.CompTypeZstd: NewZstdCompressor(),
}

// ForType retrieves the built-in Codec for an on-disk compression tag.
func ForType(t format.CompType) (Codec, error) {
	if codec, ok := builtinCodecs[t]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("%w: unsupported compression tag %d", errs.ErrInvalidArgument, t)
}

// Encode converts a payload to its on-disk form according to the compression
// selector and returns the stored bytes together with the tag to record in
// the entry header.
//
// For the Auto selector the payload is compressed with zstd and kept only
// when the result is below the autoRatio threshold; otherwise the raw bytes
// are stored with CompTypeRaw.
func Encode(data []byte, sel format.Compression) ([]byte, format.CompType, error) {
	switch sel {
	case format.CompressionNone:
		return data, format.CompTypeRaw, nil

	case format.CompressionZstd:
		out, err := NewZstdCompressor().Compress(data)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", errs.ErrCompression, err)
		}

		return out, format.CompTypeZstd, nil

	case format.CompressionAuto:
		out, err := NewZstdCompressor().Compress(data)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", errs.ErrCompression, err)
		}
		if float64(len(out)) >= float64(len(data))*autoRatio {
			return data, format.CompTypeRaw, nil
		}

		return out, format.CompTypeZstd, nil

	default:
		return nil, 0, fmt.Errorf("%w: unknown compression selector %d", errs.ErrInvalidArgument, sel)
	}
}
