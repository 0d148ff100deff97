// Package pool provides pooled byte buffers for the archive's index staging
// and vacuum copy paths.
package pool

import (
	"io"
	"sync"
)

const (
	// IndexBufferDefaultSize is the initial capacity of buffers used to
	// stage the encoded index and footer before a single positioned write.
	IndexBufferDefaultSize = 16 * 1024

	// IndexBufferMaxThreshold caps the capacity of buffers returned to the
	// index pool; larger ones are discarded to avoid memory bloat.
	IndexBufferMaxThreshold = 1024 * 1024

	// CopyBufferSize is the chunk size used when vacuum copies entry data
	// between files.
	CopyBufferSize = 64 * 1024
)

// ByteBuffer is a reusable byte slice wrapper handed out by the pools.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified default capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Cap returns the capacity of the buffer.
func (bb *ByteBuffer) Cap() int {
	return cap(bb.B)
}

// SetLength sets the length of the buffer to n, growing the allocation when
// the current capacity is insufficient.
func (bb *ByteBuffer) SetLength(n int) {
	if n <= cap(bb.B) {
		bb.B = bb.B[:n]
		return
	}

	grown := make([]byte, n)
	copy(grown, bb.B)
	bb.B = grown
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// ByteBufferPool is a pool of ByteBuffers to minimize allocations.
//
// It uses sync.Pool internally. A maximum size threshold avoids retaining
// overly large buffers across uses.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a new ByteBufferPool with buffers of the specified default size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}

	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		// Discard overly large buffers to prevent memory bloat
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	indexPool = NewByteBufferPool(IndexBufferDefaultSize, IndexBufferMaxThreshold)
	copyPool  = NewByteBufferPool(CopyBufferSize, CopyBufferSize)
)

// GetIndexBuffer retrieves a ByteBuffer for index/footer staging.
func GetIndexBuffer() *ByteBuffer {
	return indexPool.Get()
}

// PutIndexBuffer returns an index staging buffer to its pool.
func PutIndexBuffer(bb *ByteBuffer) {
	indexPool.Put(bb)
}

// GetCopyBuffer retrieves a ByteBuffer sized for chunked data copies.
// The returned buffer has length CopyBufferSize.
func GetCopyBuffer() *ByteBuffer {
	bb := copyPool.Get()
	bb.SetLength(CopyBufferSize)

	return bb
}

// PutCopyBuffer returns a copy buffer to its pool.
func PutCopyBuffer(bb *ByteBuffer) {
	copyPool.Put(bb)
}
