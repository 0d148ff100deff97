package archive

import (
	"fmt"
	"os"

	"github.com/zshipko/bindle-file/errs"
	"github.com/zshipko/bindle-file/internal/pool"
	"github.com/zshipko/bindle-file/internal/storage"
	"github.com/zshipko/bindle-file/section"
)

// Save publishes the in-memory index by rewriting the trailing index and
// footer at the current data boundary, truncating any stale bytes beyond
// them, and flushing to the OS. The exclusive lock is held for the duration
// and demoted back to shared afterwards.
//
// Until Save returns, other processes keep seeing the previously saved
// state: the footer is the last thing written.
func (a *Archive) Save() error {
	if a.closed {
		return errs.ErrArchiveClosed
	}

	if err := a.file.LockExclusive(); err != nil {
		return err
	}

	err := a.writeIndexAndFooter()

	if lockErr := a.file.LockShared(); lockErr != nil && err == nil {
		err = lockErr
	}

	return err
}

func (a *Archive) writeIndexAndFooter() error {
	bb := pool.GetIndexBuffer()
	defer pool.PutIndexBuffer(bb)

	indexOffset := a.dataEnd
	for i := range a.index.entries {
		e := &a.index.entries[i]
		bb.B = section.AppendEntry(bb.B, &e.EntryHeader, e.Name, a.engine)
	}

	footer := section.Footer{
		IndexOffset: indexOffset,
		EntryCount:  uint32(a.index.len()), //nolint:gosec // count is bounded by the format
	}
	bb.B = section.AppendFooter(bb.B, &footer, a.engine)

	if err := a.file.WriteAt(bb.B, int64(indexOffset)); err != nil {
		return err
	}
	if err := a.file.Truncate(int64(indexOffset) + int64(bb.Len())); err != nil {
		return err
	}

	return a.file.Sync()
}

// Vacuum compacts the archive: live entries are copied in index order into a
// sibling <path>.tmp file, which is atomically renamed over the original
// once flushed and closed. Shadowed and removed data does not survive.
//
// On rename failure the original file is left intact and reopened
// best-effort, and ErrVacuumFailed is returned. Zero-copy slices from
// ReadUncompressedDirect are invalidated by a successful vacuum.
func (a *Archive) Vacuum() error {
	if a.closed {
		return errs.ErrArchiveClosed
	}

	if err := a.file.LockExclusive(); err != nil {
		return err
	}

	tmpPath := a.file.Path() + ".tmp"
	compacted, indexOffset, err := a.writeCompacted(tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		if lockErr := a.file.LockShared(); lockErr != nil {
			return lockErr
		}

		return fmt.Errorf("%w: %w", errs.ErrVacuumFailed, err)
	}

	// Swap: the original handle must be closed before the rename so its
	// lock and map do not outlive the file they refer to.
	path := a.file.Path()
	if err := a.file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		a.closed = true

		return fmt.Errorf("%w: %w", errs.ErrVacuumFailed, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)

		return a.reopen(path, fmt.Errorf("%w: rename: %w", errs.ErrVacuumFailed, err))
	}

	if err := a.reopen(path, nil); err != nil {
		return err
	}

	ix := newIndex(len(compacted))
	for _, e := range compacted {
		ix.upsert(e)
	}
	a.index = ix
	a.dataEnd = indexOffset

	return nil
}

// writeCompacted writes header, live data, index and footer into tmpPath and
// returns the relocated entries along with the new index offset.
func (a *Archive) writeCompacted(tmpPath string) ([]Entry, uint64, error) {
	tmp, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, 0, err
	}
	defer tmp.Close()

	if _, err := tmp.Write([]byte(section.HeaderMagic)); err != nil {
		return nil, 0, err
	}

	cb := pool.GetCopyBuffer()
	defer pool.PutCopyBuffer(cb)

	compacted := make([]Entry, 0, a.index.len())
	cur := uint64(section.HeaderSize)

	for _, e := range a.index.entries {
		if err := a.copyEntryData(tmp, e, cb.B); err != nil {
			return nil, 0, err
		}
		if _, err := tmp.Write(zeroPad[:section.Padding(e.CSize)]); err != nil {
			return nil, 0, err
		}

		relocated := e
		relocated.Offset = cur
		compacted = append(compacted, relocated)
		cur += section.AlignUp(e.CSize)
	}

	bb := pool.GetIndexBuffer()
	defer pool.PutIndexBuffer(bb)

	for i := range compacted {
		bb.B = section.AppendEntry(bb.B, &compacted[i].EntryHeader, compacted[i].Name, a.engine)
	}
	footer := section.Footer{
		IndexOffset: cur,
		EntryCount:  uint32(len(compacted)), //nolint:gosec // count is bounded by the format
	}
	bb.B = section.AppendFooter(bb.B, &footer, a.engine)

	if _, err := tmp.Write(bb.B); err != nil {
		return nil, 0, err
	}
	if err := tmp.Sync(); err != nil {
		return nil, 0, err
	}

	return compacted, cur, nil
}

// copyEntryData streams one entry's stored bytes from the source archive
// into w in chunks.
func (a *Archive) copyEntryData(w *os.File, e Entry, buf []byte) error {
	remaining := e.CSize
	off := int64(e.Offset)

	for remaining > 0 {
		n := uint64(len(buf))
		if remaining < n {
			n = remaining
		}

		chunk := buf[:n]
		if err := a.file.ReadAt(chunk, off); err != nil {
			return err
		}
		if _, err := w.Write(chunk); err != nil {
			return err
		}

		off += int64(n)
		remaining -= n
	}

	return nil
}

// reopen re-establishes the storage handle after a vacuum swap or swap
// failure. cause, when non-nil, is the error to report once the reopen
// succeeds; a failed reopen leaves the handle closed.
func (a *Archive) reopen(path string, cause error) error {
	file, err := storage.Open(path, false, a.cfg.nonBlocking)
	if err != nil {
		a.closed = true
		if cause != nil {
			return fmt.Errorf("%w; reopen also failed: %w", cause, err)
		}

		return err
	}
	a.file = file

	return cause
}
