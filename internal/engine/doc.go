// Package engine implements the per-cell developmental state machine.
//
// The engine is the decision core of the simulation: it initializes new cell
// records, advances every live cell's gene-expression recurrences once per
// tick, moves cells along the developmental graph, and derives daughter
// records when the host divides a cell.
//
// ARCHITECTURE:
//
// Sequential Fold Per Tick:
// Update visits the population in ascending id order and consumes random
// draws from a single injected stream. This ensures:
// - Identical populations for identical seeds
// - Reproducible draw consumption order on replay
// - No cell's update depends on another cell's values from the same tick
//
// Tick Processing Flow:
// 1. The host advances volume and cellAge for every cell
// 2. Update draws the tick's maturation rate, then steps each cell
// 3. A cell whose volume exceeds its target is flagged for division
// 4. The host splits flagged cells, runs Init on both daughters, then Divide
//
// Daughters created during a tick are not stepped again in that tick.
//
// Developmental graph (initial 0, terminal 5):
//
//	germinating(0) -> RBr(1) -> RBe(2) -> IB(3) -> preEB(4) -> EB(5)
//
// The dormant stage (6) is fully defined but only entered when
// Params.DormantAfter is set; a dormant cell returns to IB.
//
// Stage handlers run as a chain in the order 0, 1, 2, 6, 3, 4, 5, so a cell
// that enters a later stage is stepped by that stage's handler in the same
// tick.
//
// FAULTS:
//
// Per-cell faults are logged and reported to the Observer; they never abort
// the population pass. Only a corrupt population is returned to the caller.
package engine
