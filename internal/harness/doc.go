// Package harness runs YAML conformance scenarios against a model
// wired to the sqlite reference backend.
//
// A scenario seeds stored documents, drives the model through a list
// of steps, and asserts over the recorded event trace and the final
// document lifecycle state. Every mutation event delivered in the
// ordered phase is recorded together with its delivery sequence
// number, so a scenario always produces the same trace.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: subscribe_write_unload
//	description: A subscribed document emits load, change and unload.
//	seed:
//	  - collection: users
//	    id: ada
//	    data:
//	      name: Ada
//	steps:
//	  - action: subscribe
//	    targets: [users.ada]
//	  - action: set
//	    path: users.ada.name
//	    value: Grace
//	  - action: unsubscribe
//	    targets: [users.ada]
//	assertions:
//	  - type: trace_order
//	    events:
//	      - event: load
//	      - event: change
//	      - event: unload
//
// # Step Actions
//
//   - fetch, subscribe, unfetch, unsubscribe: reference counting over
//     the collection.id paths in targets
//   - set, del: write or delete the value at path
//   - insert, remove, move: splice the array at path
//   - add: create a document under a minted id (doc_ids supplies a
//     deterministic id list)
//   - inject: deliver a remote operation through the backend connection
//   - pause, resume: buffer and then flush backend delivery
//
// A step with error expects the action to fail with a message
// containing the given substring.
//
// # Assertion Types
//
//   - trace_contains: some recorded event matches the fields given
//   - trace_order: the events list appears in the trace in order
//   - trace_count: exactly count events match
//   - resident: the target document is loaded, optionally in a given
//     retention state
//   - not_resident: the target document has been evicted or was never
//     loaded
//   - counter: the fetch or subscribe counter of target equals count
//
// # Deterministic Traces
//
// Scenarios run on an in-memory SQLite store with a fresh connection
// and a zero unload delay, so completions land inline on the calling
// goroutine. Events are stamped by the dispatch clock rather than wall
// time, and doc_ids replaces random document ids with a fixed list.
// Golden trace files live under testdata/golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/subscribe_write_unload.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if !result.Pass {
//		for _, msg := range result.Errors {
//			fmt.Println(msg)
//		}
//	}
package harness
