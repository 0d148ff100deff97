package section

import (
	"strings"
	"unicode/utf8"

	"github.com/zshipko/bindle-file/endian"
	"github.com/zshipko/bindle-file/errs"
	"github.com/zshipko/bindle-file/format"
)

// EntryHeader is the fixed 32-byte metadata record that precedes each entry
// name in the index section. All integers are little-endian and the struct is
// laid out on disk with no implicit padding.
//
// Layout:
//
//	offset    0  uint64  absolute file offset of the data blob
//	c_size    8  uint64  bytes stored on disk (post-compression)
//	u_size   16  uint64  original uncompressed size
//	crc32    24  uint32  CRC-32 (IEEE) of the stored c_size bytes
//	name_len 28  uint16  UTF-8 name byte length
//	comp     30  uint8   0 = raw, 1 = zstd
//	reserved 31  uint8   zero
type EntryHeader struct {
	// Offset is the absolute file offset of the entry's data blob. It is
	// always a multiple of the 8-byte alignment.
	Offset uint64

	// CSize is the number of bytes stored on disk at Offset.
	CSize uint64

	// USize is the original uncompressed size. Equal to CSize for raw
	// entries.
	USize uint64

	// CRC32 is the IEEE CRC-32 of the stored CSize bytes as they appear on
	// disk, so compressed payloads are checksummed in compressed form.
	CRC32 uint32

	// NameLen is the byte length of the UTF-8 name following the header.
	NameLen uint16

	// CompType tags how the stored bytes are encoded.
	CompType format.CompType
}

// Bytes returns the entry header as a 32-byte slice using the specified
// endian engine.
func (h *EntryHeader) Bytes(engine endian.EndianEngine) []byte {
	var b [EntryHeaderSize]byte // stack allocation, it's faster than heap allocation
	engine.PutUint64(b[0:8], h.Offset)
	engine.PutUint64(b[8:16], h.CSize)
	engine.PutUint64(b[16:24], h.USize)
	engine.PutUint32(b[24:28], h.CRC32)
	engine.PutUint16(b[28:30], h.NameLen)
	b[30] = byte(h.CompType)
	b[31] = 0

	return b[:]
}

// Parse parses a 32-byte entry header from data.
func (h *EntryHeader) Parse(data []byte, engine endian.EndianEngine) error {
	if len(data) < EntryHeaderSize {
		return errs.ErrCorruptIndex
	}

	h.Offset = engine.Uint64(data[0:8])
	h.CSize = engine.Uint64(data[8:16])
	h.USize = engine.Uint64(data[16:24])
	h.CRC32 = engine.Uint32(data[24:28])
	h.NameLen = engine.Uint16(data[28:30])
	h.CompType = format.CompType(data[30])

	if !h.CompType.Valid() {
		return errs.ErrCorruptIndex
	}

	return nil
}

// AppendEntry appends one complete index record to dst: the 32-byte header,
// the name bytes, and zero padding up to the next 8-byte boundary.
//
// The header's NameLen field is taken from name, not from the struct.
func AppendEntry(dst []byte, h *EntryHeader, name string, engine endian.EndianEngine) []byte {
	rec := *h
	rec.NameLen = uint16(len(name)) //nolint:gosec // callers enforce MaxNameLen

	dst = append(dst, rec.Bytes(engine)...)
	dst = append(dst, name...)
	for range Padding(uint64(EntryHeaderSize + len(name))) {
		dst = append(dst, 0)
	}

	return dst
}

// DecodeEntry parses one index record from the front of data and returns the
// header, the name, and the total number of bytes consumed including trailing
// padding.
func DecodeEntry(data []byte, engine endian.EndianEngine) (EntryHeader, string, int, error) {
	var h EntryHeader
	if err := h.Parse(data, engine); err != nil {
		return EntryHeader{}, "", 0, err
	}

	size := EntrySize(int(h.NameLen))
	if len(data) < size {
		return EntryHeader{}, "", 0, errs.ErrCorruptIndex
	}

	name := string(data[EntryHeaderSize : EntryHeaderSize+int(h.NameLen)])
	if !ValidName(name) {
		return EntryHeader{}, "", 0, errs.ErrCorruptIndex
	}

	return h, name, size, nil
}

// ValidName reports whether name is a legal entry name: non-empty, valid
// UTF-8, free of NUL bytes, and short enough for the 16-bit length field.
func ValidName(name string) bool {
	if len(name) == 0 || len(name) > MaxNameLen {
		return false
	}
	if !utf8.ValidString(name) {
		return false
	}

	return strings.IndexByte(name, 0) < 0
}
