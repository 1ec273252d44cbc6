// Package persistence keeps per-vehicle air levels alive across device teardown.
//
// Store is an in-memory map keyed by stable vehicle identity. Devices write to it
// every tick; the map only reaches durable storage when the host saves, through
// Flush or CollectAndFlush. Records are only ever overwritten by a newer
// update; neither device teardown nor host destruction removes one.
//
// The durable form is a single TOML document stored under one Backend key:
//
//	[vehicles]
//	"6f1c…" = 42.5
//
// Backends: FileBackend (one file per key, atomic rename), SQLiteBackend
// (modernc.org/sqlite key/value table) and MemoryBackend.
package persistence
