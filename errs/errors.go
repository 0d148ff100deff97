// Package errs defines the sentinel errors returned by the bindle archive
// engine.
//
// All errors are compared with errors.Is; call sites wrap them with
// fmt.Errorf("...: %w", err) to add context without losing the sentinel.
package errs

import "errors"

// Archive parsing and validation errors.
var (
	// ErrBadMagic indicates the file does not start with the BINDL001 header.
	ErrBadMagic = errors.New("invalid archive magic")

	// ErrCorruptFooter indicates the trailing footer is unreadable, its
	// sentinel does not match, or the index offset is out of range.
	ErrCorruptFooter = errors.New("corrupt archive footer")

	// ErrCorruptIndex indicates an index entry points outside the data
	// region, carries an invalid name, or duplicates another entry's name.
	ErrCorruptIndex = errors.New("corrupt archive index")

	// ErrCorruptData indicates a CRC-32 mismatch on stored bytes, or a
	// zstd payload that decompressed to an unexpected length.
	ErrCorruptData = errors.New("corrupt entry data")
)

// Argument and lookup errors.
var (
	// ErrInvalidName indicates an entry name that is empty, not valid
	// UTF-8, contains a NUL byte, or exceeds the 16-bit length field.
	ErrInvalidName = errors.New("invalid entry name")

	// ErrInvalidArgument indicates an unknown compression selector or an
	// otherwise out-of-range argument.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates the named entry does not exist in the archive.
	ErrNotFound = errors.New("entry not found")
)

// Runtime errors.
var (
	// ErrCompression indicates the zstd codec failed.
	ErrCompression = errors.New("compression failed")

	// ErrLockBusy indicates advisory lock contention while the archive was
	// opened in non-blocking mode.
	ErrLockBusy = errors.New("archive lock busy")

	// ErrVacuumFailed indicates the compaction temp file could not be
	// written or renamed; the archive is left in a best-effort reopened
	// state.
	ErrVacuumFailed = errors.New("vacuum failed")

	// ErrArchiveClosed indicates an operation on a closed archive handle.
	ErrArchiveClosed = errors.New("archive is closed")

	// ErrWriterClosed indicates a write to a closed streaming writer.
	ErrWriterClosed = errors.New("streaming writer is closed")

	// ErrReaderClosed indicates a read from a closed streaming reader.
	ErrReaderClosed = errors.New("streaming reader is closed")
)
