// Package bindle provides a single-file, append-only binary archive for
// collecting many named byte blobs into one container.
//
// Archives support optional per-entry Zstandard compression, CRC-32
// integrity checking, and a memory-map-friendly layout that allows zero-copy
// reads of uncompressed entries. The format targets workloads where reads
// dominate and updates are occasional: asset bundles, content-addressed data
// packs, embedded resource containers.
//
// # Core Features
//
//   - Append-only updates: adding an entry shadows any previous entry of
//     the same name without rewriting existing data
//   - Per-entry compression (None, Zstd, or Auto with raw fallback)
//   - CRC-32 checksums over the stored bytes of every entry
//   - Zero-copy reads of raw entries straight from the memory map
//   - Streaming writer and reader for entries of unknown size
//   - Vacuum compaction with atomic file replacement
//   - Advisory whole-file locking for cooperating processes
//
// # Basic Usage
//
// Creating an archive and adding entries:
//
//	a, err := bindle.Create("assets.bndl")
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	if err := a.Add("logo.png", logoBytes, bindle.CompressionAuto); err != nil {
//	    return err
//	}
//	if err := a.Save(); err != nil {
//	    return err
//	}
//
// Reading entries back:
//
//	a, err := bindle.Open("assets.bndl")
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//
//	logo, err := a.Read("logo.png")
//	if err != nil {
//	    return err
//	}
//
// Streaming an entry of unknown size:
//
//	w, err := a.NewWriter("dump.bin", bindle.CompressionZstd)
//	if err != nil {
//	    return err
//	}
//	if _, err := io.Copy(w, src); err != nil {
//	    return err
//	}
//	if err := w.Close(); err != nil {
//	    return err
//	}
package bindle

import (
	"github.com/zshipko/bindle-file/archive"
	"github.com/zshipko/bindle-file/format"
	"github.com/zshipko/bindle-file/internal/hash"
)

// Archive is a handle to an open bindle file. See the archive package for
// the full method set.
type Archive = archive.Archive

// Entry is the metadata of one live archive entry.
type Entry = archive.Entry

// Option configures an archive handle at open time.
type Option = archive.Option

// CompressionSelector chooses how Add and NewWriter store entry bytes.
type CompressionSelector = format.Compression

// Compression selectors accepted by Add and NewWriter.
const (
	CompressionNone = format.CompressionNone
	CompressionZstd = format.CompressionZstd
	CompressionAuto = format.CompressionAuto
)

// Create opens the archive at path, creating it when absent. A freshly
// created archive is exactly the 8-byte header.
func Create(path string, opts ...Option) (*Archive, error) {
	return archive.Create(path, opts...)
}

// Open opens an existing archive at path, validating the header and footer
// and parsing the index.
func Open(path string, opts ...Option) (*Archive, error) {
	return archive.Open(path, opts...)
}

// Load is an alias of Open.
func Load(path string, opts ...Option) (*Archive, error) {
	return archive.Load(path, opts...)
}

// WithNonBlockingLock makes lock acquisition fail with errs.ErrLockBusy
// instead of blocking when another process holds a conflicting lock.
func WithNonBlockingLock() Option {
	return archive.WithNonBlockingLock()
}

// WithVerifyOnRead verifies the stored CRC-32 on every buffered Read.
func WithVerifyOnRead() Option {
	return archive.WithVerifyOnRead()
}

// NameID computes the 64-bit xxHash64 identifier the index derives from an
// entry name.
func NameID(name string) uint64 {
	return hash.ID(name)
}
