package section

import "math"

// On-disk layout constants for the bindle archive format.
const (
	// HeaderMagic is the 8-byte ASCII magic at the start of every archive.
	HeaderMagic = "BINDL001"

	// HeaderSize is the fixed archive header size in bytes.
	HeaderSize = 8

	// EntryHeaderSize is the fixed per-entry header size in bytes. The
	// header is followed by the UTF-8 name and zero padding up to the next
	// 8-byte boundary.
	EntryHeaderSize = 32

	// FooterSize is the size of the footer this implementation writes:
	// index offset (u64), entry count (u32), magic sentinel (u32).
	FooterSize = 16

	// FooterSizeLegacy is the size of the sentinel-free footer dialect:
	// index offset (u64) followed by entry count (u32).
	FooterSizeLegacy = 12

	// FooterMagic is the trailing 32-bit sentinel. Encoded little-endian it
	// reads "BNDL" on disk.
	FooterMagic uint32 = 0x4C444E42

	// Alignment is the boundary both data blobs and index records are
	// padded to.
	Alignment = 8

	// MaxNameLen is the longest entry name the 16-bit length field can
	// describe.
	MaxNameLen = math.MaxUint16
)

// AlignUp rounds n up to the next multiple of the 8-byte alignment.
func AlignUp(n uint64) uint64 {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// Padding returns the number of zero bytes needed after n to reach the next
// 8-byte boundary.
func Padding(n uint64) int {
	return int(AlignUp(n) - n)
}

// EntrySize returns the full on-disk size of one index record: header, name
// and trailing padding.
func EntrySize(nameLen int) int {
	return int(AlignUp(uint64(EntryHeaderSize + nameLen)))
}
