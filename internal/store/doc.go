// Package store provides SQLite-backed durable storage for simulation runs.
//
// The store is an append-only run log with:
//   - Runs: seed, tick budget, resolved configuration and final digest
//   - Snapshots: per-tick population digest and stage counts
//   - Snapshot cells: the full cell records of every snapshot
//   - Events: spawns, transitions, divisions and faults
//
// # Ordering
//
// Rows carry logical time only (tick and the culture's event sequence).
// Every query orders by those columns, so two stores written by the same
// deterministic run read back identically.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// A Store is bound to a single run for writing through RunSink, which
// satisfies culture.Sink.
package store
