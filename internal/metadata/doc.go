// Package metadata defines the server-metadata contract the query tree
// validates against, plus the providers that implement it.
//
// Providers:
//   - Static: in-memory provider built from a YAML fixture
//   - Snapshot: SQLite-backed offline copy of another provider
//   - Cache: decorator that replays the last successful fetch per key,
//     coalesces identical concurrent lookups and rate limits the
//     underlying provider
//
// All provider calls are idempotent reads. Logical names are compared
// case-insensitively through Key.
package metadata
