package archive

import (
	"fmt"
	"hash/crc32"
	"io"

	"github.com/zshipko/bindle-file/compress"
	"github.com/zshipko/bindle-file/errs"
	"github.com/zshipko/bindle-file/format"
	"github.com/zshipko/bindle-file/internal/storage"
)

// Reader streams an entry's payload out of the archive in chunks,
// decompressing zstd entries on the fly. It keeps a rolling CRC-32 over the
// stored bytes it consumes, so a fully read entry can be verified without a
// second pass over the data.
type Reader struct {
	src      *storedReader
	zr       compress.StreamReader
	entryCRC uint32
	closed   bool
}

// storedReader reads an entry's stored bytes, serving from the memory map
// when possible and folding everything it returns into a rolling CRC.
type storedReader struct {
	file      *storage.File
	off       int64
	remaining uint64
	crc       uint32
}

func (r *storedReader) Read(p []byte) (int, error) {
	if r.remaining == 0 {
		return 0, io.EOF
	}

	n := uint64(len(p))
	if r.remaining < n {
		n = r.remaining
	}

	if b, ok := r.file.MapRange(r.off, int64(n)); ok {
		copy(p, b)
	} else if err := r.file.ReadAt(p[:n], r.off); err != nil {
		return 0, err
	}

	r.crc = crc32.Update(r.crc, crc32.IEEETable, p[:n])
	r.off += int64(n)
	r.remaining -= n

	return int(n), nil
}

// NewReader opens a streaming reader over the named entry. Returns
// ErrNotFound for absent names.
func (a *Archive) NewReader(name string) (*Reader, error) {
	if a.closed {
		return nil, errs.ErrArchiveClosed
	}

	pos, ok := a.index.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrNotFound, name)
	}
	entry := a.index.entries[pos]

	r := &Reader{
		src: &storedReader{
			file:      a.file,
			off:       int64(entry.Offset),
			remaining: entry.CSize,
		},
		entryCRC: entry.CRC32,
	}

	if entry.CompType == format.CompTypeZstd {
		zr, err := compress.NewZstdStreamReader(r.src)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrCompression, err)
		}
		r.zr = zr
	}

	return r, nil
}

// Read fills buf with the next chunk of the entry's (decompressed) payload,
// returning io.EOF after the final byte as usual.
func (r *Reader) Read(buf []byte) (int, error) {
	if r.closed {
		return 0, errs.ErrReaderClosed
	}

	if r.zr != nil {
		return r.zr.Read(buf)
	}

	return r.src.Read(buf)
}

// VerifyCRC32 reports whether the rolling CRC over the stored bytes matches
// the entry's recorded checksum. It is meaningful once every stored byte has
// been consumed, which is the case at the latest when Read returns io.EOF;
// while stored bytes remain unread the result is false.
func (r *Reader) VerifyCRC32() bool {
	return r.src.remaining == 0 && r.src.crc == r.entryCRC
}

// Close releases decompressor resources. Reads after Close fail with
// ErrReaderClosed.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if r.zr != nil {
		return r.zr.Close()
	}

	return nil
}
