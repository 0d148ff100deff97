package section

import (
	"github.com/zshipko/bindle-file/endian"
	"github.com/zshipko/bindle-file/errs"
)

// Footer locates the index section at the end of the archive.
//
// Two dialects exist on disk. The current form is 16 bytes: index offset
// (u64), entry count (u32), magic sentinel (u32). The legacy form is the same
// without the sentinel: either truncated to 12 bytes, or 16 bytes where the
// entry count was written as a u64 and the high word is zero. Readers accept
// all three; writers emit the sentinel form.
type Footer struct {
	// IndexOffset is the absolute file offset where the index section
	// begins.
	IndexOffset uint64

	// EntryCount is the number of index records following IndexOffset.
	EntryCount uint32

	// Size is the footer dialect detected on read: FooterSize or
	// FooterSizeLegacy. Readers use it to find where the index region ends;
	// Bytes always emits FooterSize.
	Size int
}

// Bytes returns the 16-byte sentinel-form footer.
func (f *Footer) Bytes(engine endian.EndianEngine) []byte {
	var b [FooterSize]byte
	engine.PutUint64(b[0:8], f.IndexOffset)
	engine.PutUint32(b[8:12], f.EntryCount)
	engine.PutUint32(b[12:16], FooterMagic)

	return b[:]
}

// AppendFooter appends the 16-byte sentinel-form footer to buf.
func AppendFooter(buf []byte, f *Footer, engine endian.EndianEngine) []byte {
	buf = engine.AppendUint64(buf, f.IndexOffset)
	buf = engine.AppendUint32(buf, f.EntryCount)
	buf = engine.AppendUint32(buf, FooterMagic)

	return buf
}

// ParseFooter locates and validates the footer given the last bytes of the
// file. tail holds at least the trailing FooterSize bytes (or the whole file
// past the header when the file is shorter) and fileSize is the total archive
// length.
//
// The sentinel form is preferred: when the last word equals FooterMagic, or is
// zero (the u64 entry-count dialect), the footer occupies the final 16 bytes.
// Otherwise the sentinel-free 12-byte form is tried. A footer whose index
// offset falls outside [HeaderSize, fileSize-footer] is rejected with
// ErrCorruptFooter.
func ParseFooter(tail []byte, fileSize uint64, engine endian.EndianEngine) (Footer, error) {
	if len(tail) >= FooterSize && fileSize >= HeaderSize+FooterSize {
		b := tail[len(tail)-FooterSize:]
		sentinel := engine.Uint32(b[12:16])
		if sentinel == FooterMagic || sentinel == 0 {
			f := Footer{
				IndexOffset: engine.Uint64(b[0:8]),
				EntryCount:  engine.Uint32(b[8:12]),
				Size:        FooterSize,
			}
			if validIndexOffset(f.IndexOffset, fileSize, FooterSize) {
				return f, nil
			}
		}
	}

	if len(tail) >= FooterSizeLegacy && fileSize >= HeaderSize+FooterSizeLegacy {
		b := tail[len(tail)-FooterSizeLegacy:]
		f := Footer{
			IndexOffset: engine.Uint64(b[0:8]),
			EntryCount:  engine.Uint32(b[8:12]),
			Size:        FooterSizeLegacy,
		}
		if validIndexOffset(f.IndexOffset, fileSize, FooterSizeLegacy) {
			return f, nil
		}
	}

	return Footer{}, errs.ErrCorruptFooter
}

func validIndexOffset(indexOffset, fileSize uint64, footerSize int) bool {
	return indexOffset >= HeaderSize && indexOffset <= fileSize-uint64(footerSize)
}
