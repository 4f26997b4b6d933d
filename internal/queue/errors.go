package queue

import "errors"

// ErrConflict indicates a guarded status transition found the record in an
// unexpected state: either the transition is illegal or a concurrent writer
// got there first. The record is left untouched; callers retry their own
// read-act cycle, not the business action.
var ErrConflict = errors.New("job state conflict")

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")
