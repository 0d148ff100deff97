package archive

import (
	"github.com/zshipko/bindle-file/internal/hash"
	"github.com/zshipko/bindle-file/section"
)

// Entry is one live archive entry: its on-disk metadata plus its name.
type Entry struct {
	section.EntryHeader

	// Name is the entry's UTF-8 name, unique among live entries.
	Name string
}

// index is the in-memory table of live entries.
//
// The source of truth is an insertion-ordered slice, which keeps listing
// stable. A parallel xxHash64 name-ID map accelerates lookup; when two
// distinct names ever hash to the same ID the map can no longer
// disambiguate, so lookups degrade to a linear scan over the slice. The
// degraded mode stays correct, it just loses the O(1) fast path.
type index struct {
	entries   []Entry
	byID      map[uint64]int
	collision bool
}

func newIndex(capacity int) *index {
	return &index{
		entries: make([]Entry, 0, capacity),
		byID:    make(map[uint64]int, capacity),
	}
}

// lookup returns the position of the named entry, or false when absent.
func (ix *index) lookup(name string) (int, bool) {
	if !ix.collision {
		pos, ok := ix.byID[hash.ID(name)]
		if !ok || ix.entries[pos].Name != name {
			return 0, false
		}

		return pos, true
	}

	for i := range ix.entries {
		if ix.entries[i].Name == name {
			return i, true
		}
	}

	return 0, false
}

// upsert inserts e or, when an entry with the same name already exists,
// shadows it by overwriting its metadata in place. Reports whether this was
// a replacement.
func (ix *index) upsert(e Entry) bool {
	if pos, ok := ix.lookup(e.Name); ok {
		ix.entries[pos] = e
		return true
	}

	id := hash.ID(e.Name)
	if _, taken := ix.byID[id]; taken {
		// Different name, same 64-bit ID.
		ix.collision = true
	} else {
		ix.byID[id] = len(ix.entries)
	}
	ix.entries = append(ix.entries, e)

	return false
}

// remove deletes the named entry from the in-memory table. It does not
// reclaim the entry's on-disk bytes; vacuum does that.
func (ix *index) remove(name string) bool {
	pos, ok := ix.lookup(name)
	if !ok {
		return false
	}

	ix.entries = append(ix.entries[:pos], ix.entries[pos+1:]...)
	ix.rebuild()

	return true
}

// rebuild recomputes the ID map after positions shift.
func (ix *index) rebuild() {
	clear(ix.byID)
	ix.collision = false

	for i := range ix.entries {
		id := hash.ID(ix.entries[i].Name)
		if _, taken := ix.byID[id]; taken {
			ix.collision = true
			continue
		}
		ix.byID[id] = i
	}
}

func (ix *index) len() int {
	return len(ix.entries)
}
