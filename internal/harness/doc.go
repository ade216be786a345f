// Package harness runs spin log scenarios as executable contract tests.
//
// A scenario feeds a chronological list of events into a fresh store and
// asserts on the retained history and on the overlap classification.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	capacity: 500            # optional, defaults to logstore.MaxEntries
//	events:
//	  - type: REQUEST        # any type tag or alias accepted by record.ParseType
//	    label: a             # optional, used by assertions
//	    data: { resultNumber: "42" }
//	  - type: COMPLETE
//	  - clear: true          # empties the log
//	assertions:
//	  - type: overlaps
//	    labels: [b]
//	  - type: entry_count
//	    count: 2
//	  - type: type_count
//	    event_type: SPIN_REQUEST
//	    count: 1
//	  - type: newest_first
//	    labels: [b, a]
//
// # Assertion Types
//
//   - overlaps: the labels of the overlapping requests, exactly
//   - entry_count: number of retained records
//   - type_count: number of retained records of one type
//   - newest_first: labeled retained records, in store order
//
// # Deterministic Testing
//
// Every run uses a stepped clock (timestamps 1, 2, 3, ...) and ids minted
// at a fixed wall time, so traces are identical across runs and can be
// compared against golden files.
package harness
