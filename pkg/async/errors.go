package async

import "errors"

var (
	// ErrQueueFull is returned by Submit when the buffer has no free slot.
	ErrQueueFull = errors.New("async.queue_full")

	// ErrClosed is returned by Submit after Close has been called.
	ErrClosed = errors.New("async.closed")
)
