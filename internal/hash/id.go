// Package hash computes the 64-bit entry name identifiers used by the
// archive index for O(1) lookup.
package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given entry name.
func ID(name string) uint64 {
	return xxhash.Sum64String(name)
}
