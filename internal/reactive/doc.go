// Package reactive provides the push-based primitives the query tree is
// built on.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// All cell mutation and every subscriber callback run on the goroutine that
// drives the Loop (Drain, Settle or Run). Work that must leave that goroutine
// (metadata lookups, debounce timers) is started with Loop.Go or Loop.After
// and its continuation is posted back to the loop queue. This gives:
//   - No locks on cells or scopes
//   - Deterministic callback order for a given sequence of edits
//   - A well-defined "settled" state (no queued tasks, no pending work)
//
// Cells:
// A Cell holds one value, replays it to new subscribers and notifies
// subscribers in subscription order when the value changes. Closing a cell
// drops every subscriber.
//
// Derived Streams:
// Combine and Map build cells whose value is recomputed from source cells.
// They re-fire when any source emits (latest-values semantics) and suppress
// no-op changes through the equality function they are given.
//
// Scopes:
// A Scope is an ownership-bound cancellation token. Ending a scope ends its
// child scopes first, then runs its hooks in reverse registration order, then
// cancels its context so in-flight lookups observe ctx.Done().
package reactive
