package archive

import (
	"fmt"

	"github.com/zshipko/bindle-file/endian"
	"github.com/zshipko/bindle-file/errs"
	"github.com/zshipko/bindle-file/internal/options"
	"github.com/zshipko/bindle-file/internal/storage"
	"github.com/zshipko/bindle-file/section"
)

// config collects the knobs applied by Options.
type config struct {
	nonBlocking  bool
	verifyOnRead bool
}

// Option configures an archive handle at open time.
type Option = options.Option[*config]

// WithNonBlockingLock makes lock acquisition fail with ErrLockBusy instead
// of blocking when another process holds a conflicting advisory lock.
func WithNonBlockingLock() Option {
	return options.NoError(func(c *config) { c.nonBlocking = true })
}

// WithVerifyOnRead verifies the stored CRC-32 on every buffered Read. The
// check is off by default to keep the hot path fast; VerifyEntry performs it
// on demand.
func WithVerifyOnRead() Option {
	return options.NoError(func(c *config) { c.verifyOnRead = true })
}

// Archive is a handle to an open bindle file.
//
// A handle owns its in-memory index. Between Save calls the index may be
// ahead of disk; state not saved is lost on reopen. Handles are not safe for
// concurrent use.
type Archive struct {
	file   *storage.File
	engine endian.EndianEngine
	index  *index
	cfg    config

	// dataEnd is the boundary between the data segment and the trailing
	// index region: the next append position, and the index offset of the
	// next save. Always 8-byte aligned.
	dataEnd uint64

	closed bool
}

// Create opens the archive at path, creating it when absent. A freshly
// created archive is exactly the 8-byte header.
func Create(path string, opts ...Option) (*Archive, error) {
	return openArchive(path, true, opts)
}

// Open opens an existing archive at path, validating the header and footer
// and parsing the index.
func Open(path string, opts ...Option) (*Archive, error) {
	return openArchive(path, false, opts)
}

// Load is an alias of Open.
func Load(path string, opts ...Option) (*Archive, error) {
	return Open(path, opts...)
}

func openArchive(path string, create bool, opts []Option) (*Archive, error) {
	var cfg config
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	file, err := storage.Open(path, create, cfg.nonBlocking)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		file:   file,
		engine: endian.GetLittleEndianEngine(),
		cfg:    cfg,
	}

	if create && file.Size() == 0 {
		if err := a.initEmpty(); err != nil {
			_ = file.Close()
			return nil, err
		}
	}

	if err := a.parse(); err != nil {
		_ = file.Close()
		return nil, err
	}

	return a, nil
}

// initEmpty stamps the header into a zero-length file.
func (a *Archive) initEmpty() error {
	if err := a.file.WriteAt([]byte(section.HeaderMagic), 0); err != nil {
		return err
	}

	return a.file.Sync()
}

// parse validates the header, locates the footer and loads the index.
func (a *Archive) parse() error {
	size := uint64(a.file.Size())
	if size < section.HeaderSize {
		return fmt.Errorf("%w: file too small (%d bytes)", errs.ErrBadMagic, size)
	}

	var magic [section.HeaderSize]byte
	if err := a.file.ReadAt(magic[:], 0); err != nil {
		return err
	}
	if string(magic[:]) != section.HeaderMagic {
		return errs.ErrBadMagic
	}

	if size == section.HeaderSize {
		// Freshly created archive: header only, nothing else to parse.
		a.index = newIndex(0)
		a.dataEnd = section.HeaderSize
		return nil
	}

	tailLen := uint64(section.FooterSize)
	if size-section.HeaderSize < tailLen {
		tailLen = size - section.HeaderSize
	}
	tail := make([]byte, tailLen)
	if err := a.file.ReadAt(tail, int64(size-tailLen)); err != nil {
		return err
	}

	footer, err := section.ParseFooter(tail, size, a.engine)
	if err != nil {
		return err
	}

	if err := a.loadIndex(footer, size); err != nil {
		return err
	}
	a.dataEnd = footer.IndexOffset

	return nil
}

// loadIndex parses footer.EntryCount records from the index region and
// validates every entry against the data segment bounds.
func (a *Archive) loadIndex(footer section.Footer, fileSize uint64) error {
	regionLen := fileSize - uint64(footer.Size) - footer.IndexOffset
	region := make([]byte, regionLen)
	if err := a.file.ReadAt(region, int64(footer.IndexOffset)); err != nil {
		return err
	}

	a.index = newIndex(int(footer.EntryCount))

	rest := region
	for range footer.EntryCount {
		header, name, consumed, err := section.DecodeEntry(rest, a.engine)
		if err != nil {
			return err
		}
		rest = rest[consumed:]

		if err := validateEntry(header, footer.IndexOffset); err != nil {
			return fmt.Errorf("%w: entry %q", err, name)
		}

		if a.index.upsert(Entry{EntryHeader: header, Name: name}) {
			return fmt.Errorf("%w: duplicate name %q", errs.ErrCorruptIndex, name)
		}
	}

	return nil
}

// validateEntry checks a parsed entry against the data segment bounds.
func validateEntry(h section.EntryHeader, indexOffset uint64) error {
	switch {
	case h.Offset < section.HeaderSize:
		return errs.ErrCorruptIndex
	case h.Offset%section.Alignment != 0:
		return errs.ErrCorruptIndex
	case h.Offset+h.CSize < h.Offset: // overflow
		return errs.ErrCorruptIndex
	case h.Offset+h.CSize > indexOffset:
		return errs.ErrCorruptIndex
	default:
		return nil
	}
}

// Close releases the advisory lock, drops the memory map and closes the
// file handle. Zero-copy slices previously returned by
// ReadUncompressedDirect become invalid.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	return a.file.Close()
}

// Path returns the archive's file path.
func (a *Archive) Path() string {
	return a.file.Path()
}

// Len returns the number of live entries.
func (a *Archive) Len() int {
	if a.closed {
		return 0
	}

	return a.index.len()
}

// Exists reports whether a live entry with the given name exists.
func (a *Archive) Exists(name string) bool {
	if a.closed {
		return false
	}

	_, ok := a.index.lookup(name)

	return ok
}

// EntryName returns the name of the entry at position i in insertion order.
func (a *Archive) EntryName(i int) (string, bool) {
	if a.closed || i < 0 || i >= a.index.len() {
		return "", false
	}

	return a.index.entries[i].Name, true
}

// Names returns a snapshot of live entry names in insertion order.
func (a *Archive) Names() []string {
	if a.closed {
		return nil
	}

	names := make([]string, a.index.len())
	for i := range a.index.entries {
		names[i] = a.index.entries[i].Name
	}

	return names
}

// Stat returns a copy of the named entry's metadata.
func (a *Archive) Stat(name string) (Entry, bool) {
	if a.closed {
		return Entry{}, false
	}

	pos, ok := a.index.lookup(name)
	if !ok {
		return Entry{}, false
	}

	return a.index.entries[pos], true
}

// Remove deletes the named entry from the in-memory index. The entry's
// on-disk bytes stay behind as garbage until the next Vacuum; Save persists
// the removal. Returns false when the name is absent.
func (a *Archive) Remove(name string) bool {
	if a.closed {
		return false
	}

	return a.index.remove(name)
}
