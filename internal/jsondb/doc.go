// Package jsondb provides a generic, concurrent-safe JSON document store.
//
// # Overview
//
// A [Document] holds one whole JSON document (a list, a map, any value) in
// memory and persists it through a [Backend] after every successful change.
// Reads never touch the backend.
//
// # Concurrency: Pessimistic Locking
//
// [Document.Modify] holds the write lock for the entire read-modify-write
// sequence, so concurrent writers are serialized and never lose updates.
// The callback receives a clone; the in-memory value is swapped only after
// the backend accepted the new bytes. Values returned by [Document.Get] are
// therefore never mutated afterwards and may be read without holding a lock.
//
// # Backends
//
// [FileBackend] writes each document to its own file through a temporary file
// and a rename, so a crash never leaves a half-written document behind.
// [SQLiteBackend] keeps every document as one row of an embedded SQLite
// database.
package jsondb
