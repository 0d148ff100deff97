// Package storage owns the archive's file handle: open/create lifecycle,
// advisory whole-file locking, positioned reads and writes, and a read-only
// memory-mapped view for zero-copy access.
//
// The map is never written through; all mutation goes through positioned
// writes. Any operation that changes the file length invalidates the map,
// and the next mapped read re-establishes it. This keeps remap semantics
// trivial: a stale map can only ever be too short, never wrong.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/zshipko/bindle-file/errs"
)

// File wraps an archive file opened read-write with an advisory lock held.
type File struct {
	f           *os.File
	path        string
	size        int64
	mmap        []byte
	nonBlocking bool
}

// Open opens path read-write, creating it when absent and create is true,
// and acquires a shared advisory lock. With nonBlocking set, lock contention
// returns ErrLockBusy instead of waiting.
func Open(path string, create, nonBlocking bool) (*File, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	sf := &File{f: f, path: path, nonBlocking: nonBlocking}

	if err := sf.flock(unix.LOCK_SH); err != nil {
		_ = f.Close()
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = sf.unlockAndClose()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	sf.size = info.Size()

	return sf, nil
}

// Path returns the file's path.
func (sf *File) Path() string {
	return sf.path
}

// Size returns the current file length as tracked through this handle.
func (sf *File) Size() int64 {
	return sf.size
}

// LockExclusive upgrades the advisory lock for the duration of a save or
// vacuum.
func (sf *File) LockExclusive() error {
	return sf.flock(unix.LOCK_EX)
}

// LockShared demotes the advisory lock back to shared.
func (sf *File) LockShared() error {
	return sf.flock(unix.LOCK_SH)
}

func (sf *File) flock(how int) error {
	if sf.nonBlocking {
		how |= unix.LOCK_NB
	}

	err := unix.Flock(int(sf.f.Fd()), how)
	if errors.Is(err, unix.EWOULDBLOCK) {
		return fmt.Errorf("%w: %s", errs.ErrLockBusy, sf.path)
	}
	if err != nil {
		return fmt.Errorf("flock %s: %w", sf.path, err)
	}

	return nil
}

// ReadAt fills p from the given offset, bypassing the map.
func (sf *File) ReadAt(p []byte, off int64) error {
	n, err := sf.f.ReadAt(p, off)
	if err != nil {
		return fmt.Errorf("read %s at %d: %w", sf.path, off, err)
	}
	if n != len(p) {
		return fmt.Errorf("read %s at %d: %w", sf.path, off, io.ErrUnexpectedEOF)
	}

	return nil
}

// WriteAt writes p at the given offset. Writes that extend the file
// invalidate the memory map.
func (sf *File) WriteAt(p []byte, off int64) error {
	if len(p) == 0 {
		return nil
	}

	n, err := sf.f.WriteAt(p, off)
	if err != nil {
		return fmt.Errorf("write %s at %d: %w", sf.path, off, err)
	}
	if n != len(p) {
		return fmt.Errorf("write %s at %d: short write (%d of %d)", sf.path, off, n, len(p))
	}

	if off+int64(len(p)) > sf.size {
		sf.size = off + int64(len(p))
		sf.unmap()
	}

	return nil
}

// Truncate sets the file length and invalidates the map when the length
// changes.
func (sf *File) Truncate(n int64) error {
	if n == sf.size {
		return nil
	}

	if err := sf.f.Truncate(n); err != nil {
		return fmt.Errorf("truncate %s: %w", sf.path, err)
	}
	sf.size = n
	sf.unmap()

	return nil
}

// Sync flushes written data to the OS.
func (sf *File) Sync() error {
	if err := sf.f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", sf.path, err)
	}

	return nil
}

// MapRange returns a zero-copy view of [off, off+n) backed by the memory
// map, establishing or refreshing the map as needed. The second return is
// false when the range cannot be served from the map; callers fall back to
// ReadAt.
//
// The returned slice stays valid until the next operation that changes the
// file length, or until Close.
func (sf *File) MapRange(off, n int64) ([]byte, bool) {
	if off < 0 || n < 0 || off+n > sf.size {
		return nil, false
	}
	if n == 0 {
		return []byte{}, true
	}

	if int64(len(sf.mmap)) < off+n {
		if err := sf.remap(); err != nil {
			return nil, false
		}
	}

	return sf.mmap[off : off+n], true
}

// remap drops the current map and maps the file at its current length.
func (sf *File) remap() error {
	sf.unmap()

	if sf.size == 0 {
		return nil
	}

	m, err := unix.Mmap(int(sf.f.Fd()), 0, int(sf.size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap %s: %w", sf.path, err)
	}
	sf.mmap = m

	return nil
}

func (sf *File) unmap() {
	if sf.mmap == nil {
		return
	}

	_ = unix.Munmap(sf.mmap)
	sf.mmap = nil
}

func (sf *File) unlockAndClose() error {
	sf.unmap()

	// Closing the descriptor releases the flock.
	if err := sf.f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", sf.path, err)
	}

	return nil
}

// Close drops the map, releases the advisory lock and closes the handle.
func (sf *File) Close() error {
	return sf.unlockAndClose()
}
