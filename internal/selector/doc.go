// Package selector chooses the next work unit to produce.
//
// Two policies exist: random selection draws uniformly from the filtered
// passages that have never had a job record, and sequential selection walks
// the corpus in order from the persisted cursor position. Both treat any
// existing job record as "already attempted" regardless of its status, so a
// unit is never picked twice; failed units re-enter the pipeline through the
// retry manager instead.
package selector
