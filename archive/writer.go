package archive

import (
	"fmt"
	"hash/crc32"

	"github.com/zshipko/bindle-file/compress"
	"github.com/zshipko/bindle-file/errs"
	"github.com/zshipko/bindle-file/format"
	"github.com/zshipko/bindle-file/internal/storage"
	"github.com/zshipko/bindle-file/section"
)

// Writer streams an entry of unknown total size into the archive.
//
// Bytes are appended to the file as they are written; the entry is only
// entered into the index by Close. A Writer that is abandoned without Close
// leaves the index and the append position untouched; its partial bytes
// become garbage that the next Add overwrites or Vacuum reclaims.
//
// The archive must not be mutated between NewWriter and Close.
type Writer struct {
	a    *Archive
	name string
	comp format.CompType

	// start is the entry's data offset; the sink's write head moves past it.
	start uint64
	sink  *entrySink
	zw    compress.StreamWriter

	usize  uint64
	err    error
	closed bool
}

// entrySink appends bytes at the file's write head while folding them into a
// rolling CRC-32. For compressed entries it sits below the zstd stream, so
// the CRC covers the stored bytes exactly as they land on disk.
type entrySink struct {
	file *storage.File
	off  int64
	crc  uint32
}

func (s *entrySink) Write(p []byte) (int, error) {
	if err := s.file.WriteAt(p, s.off); err != nil {
		return 0, err
	}
	s.crc = crc32.Update(s.crc, crc32.IEEETable, p)
	s.off += int64(len(p))

	return len(p), nil
}

// NewWriter opens a streaming writer for the named entry. The Auto selector
// behaves like Zstd here: with the total size unknown up front there is no
// output to measure a fallback against.
func (a *Archive) NewWriter(name string, sel format.Compression) (*Writer, error) {
	if a.closed {
		return nil, errs.ErrArchiveClosed
	}
	if !section.ValidName(name) {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidName, name)
	}
	if !sel.Valid() {
		return nil, fmt.Errorf("%w: compression selector %d", errs.ErrInvalidArgument, sel)
	}

	w := &Writer{
		a:     a,
		name:  name,
		start: a.dataEnd,
		sink:  &entrySink{file: a.file, off: int64(a.dataEnd)},
	}

	if sel == format.CompressionNone {
		w.comp = format.CompTypeRaw
		return w, nil
	}

	zw, err := compress.NewZstdStreamWriter(w.sink)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCompression, err)
	}
	w.comp = format.CompTypeZstd
	w.zw = zw

	return w, nil
}

// Write appends chunk to the entry.
func (w *Writer) Write(chunk []byte) (int, error) {
	if w.closed {
		return 0, errs.ErrWriterClosed
	}
	if w.err != nil {
		return 0, w.err
	}

	var n int
	var err error
	if w.zw != nil {
		n, err = w.zw.Write(chunk)
	} else {
		n, err = w.sink.Write(chunk)
	}
	if err != nil {
		w.err = err
		return n, err
	}
	w.usize += uint64(n)

	return n, nil
}

// Close flushes any buffered compressed output, pads the entry to the
// 8-byte boundary and publishes it in the in-memory index. As with Add, the
// on-disk index is only updated by the next Save.
func (w *Writer) Close() error {
	if w.closed {
		return errs.ErrWriterClosed
	}
	w.closed = true

	if w.zw != nil {
		if err := w.zw.Close(); err != nil && w.err == nil {
			w.err = fmt.Errorf("%w: %w", errs.ErrCompression, err)
		}
	}
	if w.err != nil {
		// Leave the partial bytes unpublished.
		return w.err
	}

	csize := uint64(w.sink.off) - w.start
	pad := section.Padding(csize)
	if err := w.a.file.WriteAt(zeroPad[:pad], w.sink.off); err != nil {
		return err
	}

	w.a.index.upsert(Entry{
		EntryHeader: section.EntryHeader{
			Offset:   w.start,
			CSize:    csize,
			USize:    w.usize,
			CRC32:    w.sink.crc,
			CompType: w.comp,
		},
		Name: w.name,
	})
	w.a.dataEnd = w.start + section.AlignUp(csize)

	return nil
}
