// Package harness runs edit scenarios against a query tree.
//
// A scenario optionally imports a FetchXML document, applies a list of
// editing steps through the service and checks the settled validation
// state with assertions. The final state can be compared against golden
// snapshots.
//
// # Scenario Format
//
//	name: condition_reset
//	description: "Changing the attribute clears operator and values"
//	metadata: ../../testdata/metadata/crm.yaml
//	query: |
//	  <fetch><entity name="account"/></fetch>
//	steps:
//	  - op: add
//	    parent: /fetch/entity
//	    kind: filter
//	  - op: set
//	    node: /fetch/entity/filter
//	    name: type
//	    value: or
//	  - op: add
//	    parent: /fetch
//	    kind: filter
//	    expect_error: E201
//	assertions:
//	  - type: invalid
//	  - type: error_contains
//	    node: /fetch/entity/filter
//	    message: "Filter must contain at least one condition or filter"
//
// # Node Paths
//
// Steps and assertions address nodes with paths such as
// /fetch/entity/filter/condition[1]. The bracketed index is zero-based
// among siblings of the same kind and may be omitted for the first one.
//
// # Determinism
//
// Every scenario runs against a fresh service with no debounce, and the
// harness settles the loop after the import and after every step, so
// results never depend on timing.
package harness
