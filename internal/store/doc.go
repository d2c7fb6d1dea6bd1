// Package store provides SQLite-backed storage for finalized process
// snapshots and global tag aliases.
//
// Tables:
//   - builds: one row per compiled configuration, holding the snapshot JSON
//     and its content hash
//   - global_tags: alias → concrete tag overrides consulted by the
//     conditions resolver
//
// # Ordering
//
// Builds carry a seq INTEGER assigned at insert. Every listing orders by
// seq ASC, id ASC COLLATE BINARY so results never depend on wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Snapshot hashes are computed by ir.ProcessHash before a build is written;
// the store never recomputes them.
package store
