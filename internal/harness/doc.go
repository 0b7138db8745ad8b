// Package harness runs developmental-cycle scenarios as executable tests.
//
// A scenario places founder cells, runs the culture for a fixed number of
// ticks with a fixed seed, and checks assertions against the stored run.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: ib_maturation
//	description: "An IB condenses into an infectious EB"
//	seed: 1
//	ticks: 100
//	config: |
//	  dormant_after: 30
//	cells:
//	  - type: IB
//	    parent_growth: 1
//	assertions:
//	  - type: transition_at
//	    cell: 1
//	    from: IB
//	    to: preEB
//	    tick: 15
//	  - type: final_type
//	    cell: 1
//	    stage: EB
//
// The optional config block is CUE and is resolved exactly like a
// configuration file; seed and ticks from the scenario override it.
//
// # Assertion Types
//
//   - final_type: a cell exists at the end of the run in the given stage
//   - type_count: the final number of cells in a stage (count, min, max)
//   - never_type: no cell entered the stage at any point of the run
//   - transition_at: a cell made a from→to transition (tick, min_tick, max_tick)
//
// # Isolation
//
// Every scenario runs against a fresh in-memory store under a fixed run
// id, so two runs of the same scenario read back identical events.
package harness
