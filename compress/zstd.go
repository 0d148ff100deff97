package compress

// ZstdCompressor provides Zstandard compression for entry payloads.
//
// Zstd trades a little compression speed for much better ratios than the
// fast byte-oriented codecs, which suits an archive format where reads
// dominate writes. The compression level is fixed at the zstd default
// (level 3); the format stores no level information, so any level can be
// decompressed by any build.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
