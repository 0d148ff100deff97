// Package compress provides the entry payload codecs for bindle archives.
//
// The on-disk format defines two codecs: Raw (identity) and Zstd. A third
// selector, Auto, compresses with zstd and falls back to raw storage when the
// compressed output is not meaningfully smaller than the input.
//
// The zstd implementation is pure Go (github.com/klauspost/compress/zstd) by
// default; building with the bindle_cgo_zstd tag switches to the cgo-backed
// github.com/valyala/gozstd.
package compress
