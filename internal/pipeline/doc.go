// Package pipeline drives jobs through the production stages.
//
// A Runner executes the configured stage chain against one processing job,
// persisting each produced asset path as it lands and moving the record to
// ready or failed at the end. The Producer sits above it: it asks the
// selector for the next work unit, seeds the job record, runs the pipeline,
// and advances the sequential cursor only after a successful run so a failed
// unit is re-selected next time.
//
// Retried jobs restart from the first stage. Individual stages overwrite
// whatever partial assets a previous attempt left behind, so a rerun never
// depends on earlier state.
package pipeline
