package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zshipko/bindle-file/endian"
	"github.com/zshipko/bindle-file/errs"
	"github.com/zshipko/bindle-file/format"
)

func TestAlignUp(t *testing.T) {
	cases := []struct {
		in   uint64
		want uint64
	}{
		{0, 0},
		{1, 8},
		{7, 8},
		{8, 8},
		{9, 16},
		{31, 32},
		{32, 32},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, AlignUp(tc.in), "AlignUp(%d)", tc.in)
		require.Equal(t, int(tc.want-tc.in), Padding(tc.in), "Padding(%d)", tc.in)
	}
}

func TestEntryHeaderRoundTrip(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	h := EntryHeader{
		Offset:   4096,
		CSize:    123,
		USize:    456,
		CRC32:    0xDEADBEEF,
		NameLen:  9,
		CompType: format.CompTypeZstd,
	}

	b := h.Bytes(engine)
	require.Len(t, b, EntryHeaderSize)
	require.Equal(t, byte(0), b[31])

	var parsed EntryHeader
	require.NoError(t, parsed.Parse(b, engine))
	require.Equal(t, h, parsed)
}

func TestEntryHeaderParseErrors(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	t.Run("Short buffer", func(t *testing.T) {
		var h EntryHeader
		err := h.Parse(make([]byte, EntryHeaderSize-1), engine)
		require.ErrorIs(t, err, errs.ErrCorruptIndex)
	})

	t.Run("Unknown compression tag", func(t *testing.T) {
		h := EntryHeader{NameLen: 1}
		b := h.Bytes(engine)
		b[30] = 7

		var parsed EntryHeader
		err := parsed.Parse(b, engine)
		require.ErrorIs(t, err, errs.ErrCorruptIndex)
	})
}

func TestEncodeDecodeEntry(t *testing.T) {
	engine := endian.GetLittleEndianEngine()

	t.Run("Round trip with padding", func(t *testing.T) {
		h := EntryHeader{
			Offset:   8,
			CSize:    13,
			USize:    13,
			CRC32:    42,
			CompType: format.CompTypeRaw,
		}

		buf := AppendEntry(nil, &h, "test.txt", engine)
		require.Equal(t, EntrySize(len("test.txt")), len(buf))
		require.Equal(t, 0, len(buf)%Alignment)

		parsed, name, consumed, err := DecodeEntry(buf, engine)
		require.NoError(t, err)
		require.Equal(t, "test.txt", name)
		require.Equal(t, len(buf), consumed)
		require.Equal(t, h.Offset, parsed.Offset)
		require.Equal(t, h.CSize, parsed.CSize)
		require.Equal(t, uint16(len("test.txt")), parsed.NameLen)
	})

	t.Run("Name length already a multiple of eight", func(t *testing.T) {
		h := EntryHeader{Offset: 8, CompType: format.CompTypeRaw}

		buf := AppendEntry(nil, &h, "12345678", engine)
		require.Equal(t, EntryHeaderSize+8, len(buf))
	})

	t.Run("Truncated name bytes", func(t *testing.T) {
		h := EntryHeader{Offset: 8, CompType: format.CompTypeRaw}

		buf := AppendEntry(nil, &h, "abcdef", engine)

		_, _, _, err := DecodeEntry(buf[:EntryHeaderSize+2], engine)
		require.ErrorIs(t, err, errs.ErrCorruptIndex)
	})

	t.Run("Embedded NUL rejected", func(t *testing.T) {
		h := EntryHeader{Offset: 8, CompType: format.CompTypeRaw, NameLen: 3}
		b := h.Bytes(engine)
		b = append(b, 'a', 0, 'b')
		b = append(b, make([]byte, Padding(uint64(len(b))))...)

		_, _, _, err := DecodeEntry(b, engine)
		require.ErrorIs(t, err, errs.ErrCorruptIndex)
	})
}

func TestValidName(t *testing.T) {
	require.True(t, ValidName("a"))
	require.True(t, ValidName("dir/file.txt"))
	require.True(t, ValidName("héllo"))
	require.False(t, ValidName(""))
	require.False(t, ValidName("a\x00b"))
	require.False(t, ValidName(string([]byte{0xff, 0xfe})))
	require.False(t, ValidName(string(make([]byte, MaxNameLen+1))))
}
