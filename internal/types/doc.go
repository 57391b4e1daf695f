// Package types defines the core data model shared across the bridge:
// extension identity, namespace/service metadata, dispatch results, the
// typed call-error taxonomy, and the wire projections of cookie, download,
// command, and notification records.
package types
