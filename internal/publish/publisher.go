package publish

import (
	"context"
	"fmt"

	"versemill/internal/queue"
)

// Result identifies a successfully published video.
type Result struct {
	ID  string
	URL string
}

// Publisher sends one finished video to the upload destination.
type Publisher interface {
	Publish(ctx context.Context, job *queue.Job) (Result, error)
}

// Error wraps an upload failure with retryability. Quota and transient
// transport failures are retryable on a later pass; rejected content is not.
type Error struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
