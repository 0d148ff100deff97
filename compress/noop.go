package compress

// NoOpCompressor is the identity codec backing raw entries.
//
// Both directions return the input slice as-is, without any processing or
// copying. The returned slice shares the same underlying memory as the input;
// callers that need an owned copy make one themselves.
type NoOpCompressor struct{}

var _ Codec = (*NoOpCompressor)(nil)

// NewNoOpCompressor creates a new no-operation compressor that bypasses data.
func NewNoOpCompressor() NoOpCompressor {
	return NoOpCompressor{}
}

// Compress bypasses compression and returns the input data directly.
func (c NoOpCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress bypasses decompression and returns the input data directly.
func (c NoOpCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
