//go:build bindle_cgo_zstd

package compress

import (
	"io"

	"github.com/valyala/gozstd"
)

// zstdLevel matches the pure-Go build's default level.
const zstdLevel = 3

// Compress compresses the input data using Zstandard compression.
func (c ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return gozstd.CompressLevel(nil, data, zstdLevel), nil
}

// Decompress decompresses Zstd-compressed data.
func (c ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return gozstd.Decompress(nil, data)
}

// NewZstdStreamWriter returns a StreamWriter that zstd-compresses everything
// written to it onto w. Close must be called to flush the final frame.
func NewZstdStreamWriter(w io.Writer) (StreamWriter, error) {
	return gozstd.NewWriterLevel(w, zstdLevel), nil
}

// NewZstdStreamReader returns a StreamReader that decompresses the zstd frame
// read from r.
func NewZstdStreamReader(r io.Reader) (StreamReader, error) {
	return &gozstdStreamReader{reader: gozstd.NewReader(r)}, nil
}

type gozstdStreamReader struct {
	reader *gozstd.Reader
}

func (r *gozstdStreamReader) Read(p []byte) (int, error) {
	return r.reader.Read(p)
}

func (r *gozstdStreamReader) Close() error {
	r.reader.Release()
	return nil
}
