// Package archive implements the bindle single-file archive engine.
//
// A bindle archive is an append-only container for named byte blobs. The
// file starts with the 8-byte magic "BINDL001", followed by the data
// segment, the index of 32-byte entry headers with names, and a 16-byte
// footer locating the index:
//
//	+----------+---------------------+----------------------+--------+
//	| BINDL001 | data blobs (8-byte  | entry headers + names| footer |
//	|          | aligned, raw/zstd)  | (8-byte aligned)     |        |
//	+----------+---------------------+----------------------+--------+
//
// Updates never rewrite existing data: adding an entry appends its bytes and
// shadows any previous entry of the same name in the in-memory index. Save
// publishes the state by rewriting only the trailing index and footer.
// Vacuum compacts shadowed and removed data into a fresh file and atomically
// renames it over the original.
//
// An Archive handle is single-threaded; cooperating processes are
// coordinated through advisory whole-file locks (shared for reads,
// exclusive during save and vacuum).
package archive
