// Package store provides the durable local state for golem.
//
// The store is a plain string-keyed, string-valued key/value space with no
// transactionality guarantees toward its callers:
//   - KV: Get / Set / Remove / Clear
//   - Preferences: typed accessors for the keys the tutorial needs, each with
//     a documented default
//   - Attempts: an append-only journal of finished attempts (SQLite only)
//
// # Backends
//
//   - SQLite (Open): WAL mode, single connection, embedded schema.sql and
//     user_version migrations. Also implements the attempt journal.
//   - Badger (OpenBadger, OpenBadgerInMemory): embedded LSM key/value store.
//   - Memory (NewMemory): process-local map, used by tests and --backend memory.
//
// # Degradation
//
// Loss or corruption of any key degrades to that key's default. Read
// failures are wrapped in ReadError, logged at debug level and absorbed by
// Preferences; they never reach the learner.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
