package archive

import (
	"fmt"
	"hash/crc32"

	"github.com/zshipko/bindle-file/compress"
	"github.com/zshipko/bindle-file/errs"
	"github.com/zshipko/bindle-file/format"
	"github.com/zshipko/bindle-file/section"
)

// zeroPad is the scratch source for alignment padding writes.
var zeroPad [section.Alignment]byte

// Add appends a named entry with the given payload. An existing entry of the
// same name is shadowed: its index metadata is replaced and its old bytes
// stay on disk until vacuum.
//
// The data is written immediately, but the entry is only published to other
// processes by the next Save.
func (a *Archive) Add(name string, data []byte, sel format.Compression) error {
	if a.closed {
		return errs.ErrArchiveClosed
	}
	if !section.ValidName(name) {
		return fmt.Errorf("%w: %q", errs.ErrInvalidName, name)
	}
	if !sel.Valid() {
		return fmt.Errorf("%w: compression selector %d", errs.ErrInvalidArgument, sel)
	}

	stored, compType, err := compress.Encode(data, sel)
	if err != nil {
		return err
	}

	offset := a.dataEnd
	if err := a.file.WriteAt(stored, int64(offset)); err != nil {
		return err
	}
	pad := section.Padding(uint64(len(stored)))
	if err := a.file.WriteAt(zeroPad[:pad], int64(offset)+int64(len(stored))); err != nil {
		return err
	}

	a.index.upsert(Entry{
		EntryHeader: section.EntryHeader{
			Offset:   offset,
			CSize:    uint64(len(stored)),
			USize:    uint64(len(data)),
			CRC32:    crc32.ChecksumIEEE(stored),
			CompType: compType,
		},
		Name: name,
	})
	a.dataEnd = offset + section.AlignUp(uint64(len(stored)))

	return nil
}
