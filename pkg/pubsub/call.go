package pubsub

import "context"

// Call hands fn to the goroutine serving q and waits for its result. The request type
// Q is a function over the owner O, as generated controllers declare it.
//
// If ctx ends before the owner ran fn, Call returns ctx.Err(); fn may still run later,
// its result is then discarded.
func Call[Q ~func(*O), O any, R any](ctx context.Context, q *Queue[Q], fn func(*O) R) (R, error) {
	var zero R
	done := make(chan R, 1)
	req := Q(func(o *O) { done <- fn(o) })
	if err := q.Send(ctx, req); err != nil {
		return zero, err
	}
	select {
	case r := <-done:
		return r, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Do is Call for functions without a result.
func Do[Q ~func(*O), O any](ctx context.Context, q *Queue[Q], fn func(*O)) error {
	_, err := Call(ctx, q, func(o *O) struct{} {
		fn(o)
		return struct{}{}
	})
	return err
}

// Serve runs requests from r against owner until ctx is done, then returns ctx.Err().
// It is the body of a generated controller's Run method.
func Serve[Q ~func(*O), O any](ctx context.Context, r *QueueReceiver[Q], owner *O) error {
	for {
		req, err := r.Recv(ctx)
		if err != nil {
			return err
		}
		req(owner)
	}
}
