package archive

import (
	"fmt"
	"hash/crc32"

	"github.com/zshipko/bindle-file/compress"
	"github.com/zshipko/bindle-file/errs"
	"github.com/zshipko/bindle-file/format"
)

// Read returns a fresh copy of the named entry's payload, decompressing it
// when stored with zstd. Returns ErrNotFound for absent names.
//
// The stored CRC is only checked when the archive was opened with
// WithVerifyOnRead; use VerifyEntry for an explicit check.
func (a *Archive) Read(name string) ([]byte, error) {
	if a.closed {
		return nil, errs.ErrArchiveClosed
	}

	pos, ok := a.index.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrNotFound, name)
	}
	entry := a.index.entries[pos]

	stored, owned, err := a.storedBytes(entry)
	if err != nil {
		return nil, err
	}

	if a.cfg.verifyOnRead {
		if crc32.ChecksumIEEE(stored) != entry.CRC32 {
			return nil, fmt.Errorf("%w: crc mismatch for %q", errs.ErrCorruptData, name)
		}
	}

	if entry.CompType == format.CompTypeRaw {
		if owned {
			return stored, nil
		}
		out := make([]byte, len(stored))
		copy(out, stored)

		return out, nil
	}

	codec, err := compress.ForType(entry.CompType)
	if err != nil {
		return nil, err
	}

	out, err := codec.Decompress(stored)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", errs.ErrCompression, name, err)
	}
	if uint64(len(out)) != entry.USize {
		return nil, fmt.Errorf("%w: %q decompressed to %d bytes, want %d",
			errs.ErrCorruptData, name, len(out), entry.USize)
	}

	return out, nil
}

// ReadUncompressedDirect returns a zero-copy view of a raw entry's bytes
// backed by the archive's memory map. It returns false for absent names and
// for compressed entries.
//
// The slice stays valid only until the archive is closed, vacuumed, or
// grows; callers that need the bytes past that point must copy them.
func (a *Archive) ReadUncompressedDirect(name string) ([]byte, bool) {
	if a.closed {
		return nil, false
	}

	pos, ok := a.index.lookup(name)
	if !ok {
		return nil, false
	}
	entry := a.index.entries[pos]
	if entry.CompType != format.CompTypeRaw {
		return nil, false
	}

	return a.file.MapRange(int64(entry.Offset), int64(entry.USize))
}

// VerifyEntry recomputes the CRC-32 of the named entry's stored bytes and
// compares it with the recorded value. It returns nil on match,
// ErrCorruptData on mismatch, and ErrNotFound for absent names.
func (a *Archive) VerifyEntry(name string) error {
	if a.closed {
		return errs.ErrArchiveClosed
	}

	pos, ok := a.index.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrNotFound, name)
	}
	entry := a.index.entries[pos]

	stored, _, err := a.storedBytes(entry)
	if err != nil {
		return err
	}
	if crc32.ChecksumIEEE(stored) != entry.CRC32 {
		return fmt.Errorf("%w: crc mismatch for %q", errs.ErrCorruptData, name)
	}

	return nil
}

// storedBytes returns the entry's on-disk bytes, preferring a zero-copy map
// view. The owned flag reports whether the slice is a private copy the
// caller may keep or hand out.
func (a *Archive) storedBytes(entry Entry) ([]byte, bool, error) {
	if b, ok := a.file.MapRange(int64(entry.Offset), int64(entry.CSize)); ok {
		return b, false, nil
	}

	buf := make([]byte, entry.CSize)
	if err := a.file.ReadAt(buf, int64(entry.Offset)); err != nil {
		return nil, false, err
	}

	return buf, true, nil
}
