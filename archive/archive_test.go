package archive

import (
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zshipko/bindle-file/endian"
	"github.com/zshipko/bindle-file/errs"
	"github.com/zshipko/bindle-file/format"
	"github.com/zshipko/bindle-file/section"
)

func archivePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "t.bndl")
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}

func TestCreateFreshArchive(t *testing.T) {
	path := archivePath(t)

	a, err := Create(path)
	require.NoError(t, err)
	require.Equal(t, 0, a.Len())
	require.NoError(t, a.Close())

	// A fresh archive is exactly the 8-byte header.
	require.Equal(t, int64(section.HeaderSize), fileSize(t, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte(section.HeaderMagic), data)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(archivePath(t))
	require.Error(t, err)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := archivePath(t)
	require.NoError(t, os.WriteFile(path, []byte("NOTBINDL plus some data"), 0o644))

	_, err := Open(path)
	require.ErrorIs(t, err, errs.ErrBadMagic)
}

func TestOpenRejectsTinyFile(t *testing.T) {
	path := archivePath(t)
	require.NoError(t, os.WriteFile(path, []byte("BIN"), 0o644))

	_, err := Open(path)
	require.ErrorIs(t, err, errs.ErrBadMagic)
}

func TestAddSaveReadRoundTrip(t *testing.T) {
	path := archivePath(t)

	a, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, a.Add("test.txt", []byte("Hello from Go!"), format.CompressionNone))
	require.True(t, a.Exists("test.txt"))
	require.Equal(t, 1, a.Len())

	// Visible on this handle before save.
	got, err := a.Read("test.txt")
	require.NoError(t, err)
	require.Equal(t, "Hello from Go!", string(got))

	require.NoError(t, a.Save())
	require.NoError(t, a.Close())

	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()

	got, err = b.Read("test.txt")
	require.NoError(t, err)
	require.Equal(t, "Hello from Go!", string(got))

	name, ok := b.EntryName(0)
	require.True(t, ok)
	require.Equal(t, "test.txt", name)

	_, ok = b.EntryName(1)
	require.False(t, ok)
}

func TestAddValidation(t *testing.T) {
	a, err := Create(archivePath(t))
	require.NoError(t, err)
	defer a.Close()

	require.ErrorIs(t, a.Add("", []byte("x"), format.CompressionNone), errs.ErrInvalidName)
	require.ErrorIs(t, a.Add("a\x00b", []byte("x"), format.CompressionNone), errs.ErrInvalidName)
	require.ErrorIs(t, a.Add(string([]byte{0xff, 0xfe}), []byte("x"), format.CompressionNone), errs.ErrInvalidName)
	require.ErrorIs(t, a.Add("ok", []byte("x"), format.Compression(9)), errs.ErrInvalidArgument)
	require.Equal(t, 0, a.Len())
}

func TestReadMissing(t *testing.T) {
	a, err := Create(archivePath(t))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Read("nope")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.False(t, a.Exists("nope"))
}

func TestUnsavedRemoveRevertsOnReopen(t *testing.T) {
	path := archivePath(t)

	a, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, a.Add("keep", []byte("yes"), format.CompressionNone))
	require.NoError(t, a.Save())

	// Remove is index-only: without a save the on-disk state is untouched.
	require.True(t, a.Remove("keep"))
	require.False(t, a.Exists("keep"))
	require.NoError(t, a.Close())

	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()

	require.True(t, b.Exists("keep"))
	require.Equal(t, 1, b.Len())
}

func TestShadowing(t *testing.T) {
	path := archivePath(t)

	a, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, a.Add("n", []byte("first"), format.CompressionNone))
	require.NoError(t, a.Save())
	require.Equal(t, 1, a.Len())

	require.NoError(t, a.Add("n", []byte("second"), format.CompressionNone))
	require.NoError(t, a.Save())
	require.Equal(t, 1, a.Len(), "shadowing must not change entry count")
	require.NoError(t, a.Close())

	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()

	got, err := b.Read("n")
	require.NoError(t, err)
	require.Equal(t, "second", string(got))
	require.Equal(t, 1, b.Len())
}

func TestRemoveThenVacuum(t *testing.T) {
	path := archivePath(t)

	a, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, a.Add("file1.txt", []byte("Data 1"), format.CompressionNone))
	require.NoError(t, a.Add("file2.txt", []byte("Data 2"), format.CompressionNone))
	require.NoError(t, a.Save())
	require.Equal(t, 2, a.Len())

	require.True(t, a.Remove("file1.txt"))
	require.False(t, a.Remove("file1.txt"))
	require.NoError(t, a.Save())
	require.Equal(t, 1, a.Len())
	require.False(t, a.Exists("file1.txt"))
	require.True(t, a.Exists("file2.txt"))

	require.NoError(t, a.Vacuum())
	require.Equal(t, 1, a.Len())

	got, err := a.Read("file2.txt")
	require.NoError(t, err)
	require.Equal(t, "Data 2", string(got))
	require.NoError(t, a.Close())
}

func TestVacuumShrinksShadowedFile(t *testing.T) {
	path := archivePath(t)

	a, err := Create(path)
	require.NoError(t, err)

	big := make([]byte, 1<<20)
	for i := range big {
		big[i] = 'x'
	}
	require.NoError(t, a.Add("a", big, format.CompressionNone))
	require.NoError(t, a.Save())
	s1 := fileSize(t, path)

	require.NoError(t, a.Add("a", []byte("short"), format.CompressionNone))
	require.NoError(t, a.Save())
	got, err := a.Read("a")
	require.NoError(t, err)
	require.Equal(t, "short", string(got))
	require.GreaterOrEqual(t, fileSize(t, path), s1)

	require.NoError(t, a.Vacuum())
	require.Less(t, fileSize(t, path), s1)

	got, err = a.Read("a")
	require.NoError(t, err)
	require.Equal(t, "short", string(got))
	require.NoError(t, a.Close())

	// The compacted file must reopen cleanly.
	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()
	got, err = b.Read("a")
	require.NoError(t, err)
	require.Equal(t, "short", string(got))
}

func TestVacuumPreservesContentAndOrder(t *testing.T) {
	path := archivePath(t)

	a, err := Create(path)
	require.NoError(t, err)

	entries := map[string][]byte{
		"one":   []byte("1111"),
		"two":   []byte("22222222"),
		"three": {},
		"four":  []byte("compress me compress me compress me compress me"),
	}
	require.NoError(t, a.Add("one", entries["one"], format.CompressionNone))
	require.NoError(t, a.Add("two", entries["two"], format.CompressionNone))
	require.NoError(t, a.Add("three", entries["three"], format.CompressionNone))
	require.NoError(t, a.Add("four", entries["four"], format.CompressionZstd))
	require.NoError(t, a.Save())
	namesBefore := a.Names()

	require.NoError(t, a.Vacuum())
	require.Equal(t, namesBefore, a.Names())
	require.Equal(t, len(entries), a.Len())

	for name, want := range entries {
		got, rerr := a.Read(name)
		require.NoError(t, rerr)
		require.Equal(t, want, append([]byte{}, got...), "entry %q", name)
		require.NoError(t, a.VerifyEntry(name))
	}
	require.NoError(t, a.Close())
}

func TestZstdRoundTrip(t *testing.T) {
	path := archivePath(t)

	a, err := Create(path)
	require.NoError(t, err)

	zeros := make([]byte, 64*1024)
	require.NoError(t, a.Add("big", zeros, format.CompressionZstd))
	require.NoError(t, a.Save())
	require.NoError(t, a.Close())

	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()

	entry, ok := b.Stat("big")
	require.True(t, ok)
	require.Equal(t, format.CompTypeZstd, entry.CompType)
	require.Less(t, entry.CSize, entry.USize)
	require.Equal(t, uint64(64*1024), entry.USize)

	got, err := b.Read("big")
	require.NoError(t, err)
	require.Equal(t, zeros, got)
}

func TestReadUncompressedDirect(t *testing.T) {
	a, err := Create(archivePath(t))
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Add("raw", []byte("zero copy bytes"), format.CompressionNone))
	require.NoError(t, a.Add("zstd", make([]byte, 8192), format.CompressionZstd))
	require.NoError(t, a.Save())

	direct, ok := a.ReadUncompressedDirect("raw")
	require.True(t, ok)
	owned, err := a.Read("raw")
	require.NoError(t, err)
	require.Equal(t, owned, direct)

	_, ok = a.ReadUncompressedDirect("zstd")
	require.False(t, ok, "direct reads are raw-only")
	_, ok = a.ReadUncompressedDirect("missing")
	require.False(t, ok)
}

func TestVerifyEntryDetectsTampering(t *testing.T) {
	path := archivePath(t)

	a, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, a.Add("victim", []byte("pristine bytes here"), format.CompressionNone))
	require.NoError(t, a.Save())
	require.NoError(t, a.VerifyEntry("victim"))

	entry, ok := a.Stat("victim")
	require.True(t, ok)
	require.NoError(t, a.Close())

	// Flip one bit inside the stored bytes.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[entry.Offset+2] ^= 0x01
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()

	require.ErrorIs(t, b.VerifyEntry("victim"), errs.ErrCorruptData)

	// The unchecked read path still returns the (corrupt) bytes.
	_, err = b.Read("victim")
	require.NoError(t, err)
}

func TestVerifyOnReadOption(t *testing.T) {
	path := archivePath(t)

	a, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, a.Add("victim", []byte("pristine bytes here"), format.CompressionNone))
	require.NoError(t, a.Save())
	entry, _ := a.Stat("victim")
	require.NoError(t, a.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[entry.Offset] ^= 0x80
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	b, err := Open(path, WithVerifyOnRead())
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Read("victim")
	require.ErrorIs(t, err, errs.ErrCorruptData)
}

func TestCorruptFooterRejected(t *testing.T) {
	path := archivePath(t)

	a, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, a.Add("x", []byte("data"), format.CompressionNone))
	require.NoError(t, a.Save())
	require.NoError(t, a.Close())

	// Tear the footer the way a crash mid-save would.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)-7], 0o644))

	_, err = Open(path)
	require.ErrorIs(t, err, errs.ErrCorruptFooter)
}

func TestCorruptIndexRejected(t *testing.T) {
	path := archivePath(t)

	a, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, a.Add("x", []byte("data"), format.CompressionNone))
	require.NoError(t, a.Save())
	entry, _ := a.Stat("x")
	dataEnd := a.dataEnd
	require.NoError(t, a.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	// Point the entry's offset past the data region.
	engine := endian.GetLittleEndianEngine()
	engine.PutUint64(raw[dataEnd:dataEnd+8], entry.Offset+4096)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = Open(path)
	require.ErrorIs(t, err, errs.ErrCorruptIndex)
}

func TestZeroLengthEntry(t *testing.T) {
	path := archivePath(t)

	a, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, a.Add("empty", nil, format.CompressionNone))
	require.NoError(t, a.Save())
	require.NoError(t, a.Close())

	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()

	got, err := b.Read("empty")
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, b.VerifyEntry("empty"))

	entry, ok := b.Stat("empty")
	require.True(t, ok)
	require.Equal(t, uint64(0), entry.CSize)
	require.Equal(t, crc32.ChecksumIEEE(nil), entry.CRC32)
}

func TestClosedArchiveOperations(t *testing.T) {
	a, err := Create(archivePath(t))
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "close is idempotent")

	require.ErrorIs(t, a.Add("x", nil, format.CompressionNone), errs.ErrArchiveClosed)
	_, err = a.Read("x")
	require.ErrorIs(t, err, errs.ErrArchiveClosed)
	require.ErrorIs(t, a.Save(), errs.ErrArchiveClosed)
	require.ErrorIs(t, a.Vacuum(), errs.ErrArchiveClosed)
	require.Equal(t, 0, a.Len())
	require.False(t, a.Remove("x"))
	require.Nil(t, a.Names())
}

func TestSavedLayoutInvariants(t *testing.T) {
	path := archivePath(t)

	a, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, a.Add("alpha", []byte("abc"), format.CompressionNone))
	require.NoError(t, a.Add("beta", make([]byte, 100), format.CompressionNone))
	require.NoError(t, a.Save())
	indexOffset := a.dataEnd

	for _, e := range a.index.entries {
		require.GreaterOrEqual(t, e.Offset, uint64(section.HeaderSize))
		require.Zero(t, e.Offset%section.Alignment)
		require.LessOrEqual(t, e.Offset+e.CSize, indexOffset)
	}
	require.NoError(t, a.Close())

	size := fileSize(t, path)
	require.GreaterOrEqual(t, size, int64(28))
	require.LessOrEqual(t, int64(indexOffset), size-section.FooterSize)
}
