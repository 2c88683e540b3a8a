// Package querytree implements the reactive FetchXML query document and its
// validation engine.
//
// ARCHITECTURE:
//
// Arena Tree:
// Nodes live in an arena owned by Tree and are addressed by NodeID. Two
// independent edge sets are kept as index arrays:
//   - parent/children: structure and scoping ("nearest ancestor entity")
//   - next/prev: pre-order document order for flat iteration
//
// Removal unlinks a whole subtree from both edge sets in one step after its
// subscriptions have been torn down, so no traversal pointer ever refers to
// a removed node.
//
// Validation Pipeline:
//
//	Attribute value -> one-time validators (parse mode, snapshot)
//	                -> reactive validators (local or remote, live)
//	                -> attribute result
//	Node            -> node validators + attribute results (attribute order)
//	Tree            -> required structure check, then node results
//	                   (document order)
//
// Every level exposes the same Result shape as an Observable. Results are
// data: validator panics and provider failures become invalid results with
// a "Validation error:" message, never errors or crashes.
//
// Concurrency:
// All mutation happens on the goroutine driving the service's reactive.Loop.
// Remote validators debounce on the loop, look metadata up on a separate
// goroutine and post the result back; a result for a superseded input is
// dropped. Each node and attribute owns a reactive.Scope, and removing a node
// ends its scope, which unsubscribes every validator it owns.
//
// Entry Point:
// Service is the only mutation surface for UI and XML collaborators.
package querytree
