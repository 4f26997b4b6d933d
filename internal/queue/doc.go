// Package queue persists pipeline jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, guarded
// status transitions, the sequential-selection cursor singleton, and the
// rolling daily counters. Every read-modify-write the rest of the system
// performs goes through a Store operation so a scheduler process and one-shot
// CLI invocations can share the database without observing half-applied
// state: transitions are single UPDATE statements conditioned on the expected
// current status, and a lost race surfaces as ErrConflict.
//
// Treat this package as the single source of truth for job lifecycle
// semantics; new statuses or columns mean updating schema.sql and bumping
// schemaVersion.
package queue
