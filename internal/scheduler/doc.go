// Package scheduler runs the production loops on their configured cadences.
//
// Four timers drive the system: generation batches on a fixed interval,
// retry sweeps on their own interval, publish passes at the configured
// clock times, and a nightly maintenance pass. Tick bodies share one mutex
// so cadences never overlap, and each body runs under panic recovery so a
// bad tick cannot take the process down. A file lock enforces a single
// scheduler instance per data directory; one-shot CLI invocations share the
// database safely through the store's guarded transitions.
package scheduler
