// Package retry resubmits failed jobs through the pipeline.
//
// A sweep finds failed jobs below the attempt ceiling, moves each back to
// processing with its retry count bumped exactly once, and reruns the full
// stage chain. Jobs at the ceiling are left alone as permanent failures;
// operators clear them manually once the underlying problem is fixed.
package retry
