// Package record implements the ephemeral record store: a thin,
// purpose-scoped wrapper over a shared TTL-capable key-value store.
//
// Keys follow the "<purpose>:<identifier>" layout, values are either
// opaque strings or JSON documents, and every write carries an explicit
// TTL. See [Store] for the atomicity contract.
package record
