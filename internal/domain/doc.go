// Package domain contains the core entities of the statefeed protocol:
// the wire header and packet structures, the per-entity history entry,
// the dispatched entity event, and the sentinel errors shared across
// the codec, queue, and receiver layers.
//
// Types in this package are plain data. Encoding rules live in
// internal/wire; concurrency rules live with the components that own
// the data (internal/queue, internal/store).
package domain
