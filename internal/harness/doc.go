// Package harness runs YAML scenarios against a record store and records
// a deterministic trace of every operation.
//
// Each scenario gets a fresh in-memory backend (memstore) and a fresh
// collection.Store. Identifiers assigned by the backend are "srv-1",
// "srv-2", ... and those assigned locally "loc-1", "loc-2", ..., so traces
// are stable and can be compared against golden files.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	entity: person
//	manifest: entities.cue        # optional, relative to the scenario
//	backend:                      # records seeded into the backend
//	  - { id: "1", name: Ann, age: 30 }
//	local:                        # records merged into the local store
//	  - { id: "9", name: Zed }
//	flow:
//	  - invoke: fetchList
//	    args: { where: { name: Ann } }
//	    expect:
//	      case: Success
//	      result: ["1"]
//	  - invoke: fail
//	    args: { op: fetch, message: backend down }
//	  - invoke: fetch
//	    args: { id: "1" }
//	    expect: { case: BACKEND_FAILURE }
//	assertions:
//	  - type: trace_count
//	    action: fetch
//	    count: 1
//	  - type: final_state
//	    where: { id: "1" }
//	    expect: { name: Ann }
//
// # Operations
//
// Remote: fetch, fetchList, upsert, destroy, destroyMultiple.
// Local: merge, upsertLocal, createLocal, destroyLocal, deleteFields,
// empty, get, getRecord, where, pluck, select, sort.
// Control: fail injects a backend failure for the next call of an op.
//
// # Cases
//
// A step completes with case Success, Failure (a backend failure swallowed
// by the store's policy) or the code of the returned error (NOT_FOUND,
// MISSING_FIELD, INVALID_ARGUMENT, BACKEND_FAILURE).
//
// # Assertions
//
//   - trace_contains: an invocation of action with args (subset match)
//   - trace_order: actions appear in this order
//   - trace_count: action appears exactly count times
//   - final_state: exactly one local record matches where and has expect
//   - local_ids: the local store holds exactly ids, in insertion order
//   - remote_count: the backend holds exactly count records
package harness
