// Package store declares the two interfaces an embedder must satisfy
// to host the core: a durability collaborator for the topology/command
// log and a read/write data-store collaborator. The concrete
// list-data-store, on-disk log format, and persistence encoding are an
// embedder's concern, not this core's; this package exists so the
// rest of the core has something concrete to depend on.
package store

import "io"

// Durable is modeled on stablestore.StableStore: a thin
// append/sync surface, not a database. command.Store keeps its
// Command records in memory only and does not write through a Durable.
type Durable interface {
	Write(p []byte) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Sync() error
}

// Key and Value are opaque byte strings; the core never inspects them.
type Key string
type Value []byte

// DataStore is the two-operation embedder interface: read is scoped
// to a single command execution; apply is atomic at the
// per-CommandStore level.
type DataStore interface {
	Read(keys []Key) (map[Key]Value, error)
	Apply(writes map[Key]Value) error
}

// NopDurable discards everything written to it. Useful for tests and
// for simulation harnesses (out of scope here, but the interface must
// admit a no-op implementation cheaply).
type NopDurable struct{}

func (NopDurable) Write(p []byte) (int, error)          { return len(p), nil }
func (NopDurable) WriteAt(p []byte, off int64) (int, error) { return len(p), nil }
func (NopDurable) Sync() error                            { return nil }

var _ io.Writer = NopDurable{}
