package format

type (
	Compression uint8
	CompType    uint8
)

const (
	CompressionNone Compression = 0 // CompressionNone stores entry bytes as-is.
	CompressionZstd Compression = 1 // CompressionZstd applies Zstandard compression.
	CompressionAuto Compression = 2 // CompressionAuto keeps zstd output only when it is below 97% of the raw size.

	CompTypeRaw  CompType = 0 // CompTypeRaw marks an uncompressed on-disk entry.
	CompTypeZstd CompType = 1 // CompTypeZstd marks a zstd-compressed on-disk entry.
)

// Valid reports whether c is one of the defined compression selectors.
func (c Compression) Valid() bool {
	return c == CompressionNone || c == CompressionZstd || c == CompressionAuto
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionAuto:
		return "Auto"
	default:
		return "Unknown"
	}
}

// Valid reports whether t is a compression tag the on-disk format defines.
func (t CompType) Valid() bool {
	return t == CompTypeRaw || t == CompTypeZstd
}

func (t CompType) String() string {
	switch t {
	case CompTypeRaw:
		return "Raw"
	case CompTypeZstd:
		return "Zstd"
	default:
		return "Unknown"
	}
}
