// Package async runs deferred persistence work off the request path.
//
// The access-control core keeps its decision state in memory and mirrors it
// to a durable store. Writer lets the session manager and the permission
// resolver hand those writes off without blocking: Submit enqueues a Job,
// a single background goroutine executes jobs in order, retrying failures
// with a linear backoff and logging the ones that never succeed.
//
//	w := async.NewWriter(async.WithRetry(3, 200*time.Millisecond), async.WithLogger(log))
//	defer w.Close(context.Background())
//
//	_ = w.Submit(async.Job{Name: "session.save", Run: func(ctx context.Context) error {
//	    return store.Save(ctx, rec)
//	}})
//
// Submit never waits for the job to run; it only fails when the queue is
// full (ErrQueueFull) or the writer is closed (ErrClosed). Close drains the
// queue before returning.
package async
