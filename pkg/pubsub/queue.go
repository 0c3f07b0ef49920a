package pubsub

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// Queue is a bounded multi-producer, single-consumer queue. Generated clients use it to
// hand requests to the owning goroutine.
type Queue[T any] struct {
	name string
	obs  ChannelObserver
	ch   chan T

	mu       sync.Mutex
	claimed  bool
	sent     atomic.Uint64
	capacity int
}

// NewQueue creates a standalone Queue holding up to capacity pending items.
func NewQueue[T any](name string, capacity int, obs Observer) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultCommandCapacity
	}
	return &Queue[T]{
		name:     name,
		obs:      channelObserver(obs, name, KindQueue),
		ch:       make(chan T, capacity),
		capacity: capacity,
	}
}

// Name returns the channel name.
func (q *Queue[T]) Name() string {
	return q.name
}

// Send enqueues v, waiting for room until ctx is done.
func (q *Queue[T]) Send(ctx context.Context, v T) error {
	select {
	case q.ch <- v:
		q.sent.Add(1)
		q.obs.Published()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues v if there is room and reports whether it did.
func (q *Queue[T]) TrySend(v T) bool {
	select {
	case q.ch <- v:
		q.sent.Add(1)
		q.obs.Published()
		return true
	default:
		return false
	}
}

// Receiver claims the consuming side of the queue. Only one receiver may exist.
func (q *Queue[T]) Receiver() (*QueueReceiver[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.claimed {
		return nil, ErrSubscriberLimit
	}
	q.claimed = true
	q.obs.Subscribed()
	return &QueueReceiver[T]{q: q}, nil
}

// MustReceiver is like Receiver but panics if the receiver was already claimed.
func (q *Queue[T]) MustReceiver() *QueueReceiver[T] {
	r, err := q.Receiver()
	if err != nil {
		panic(q.name + ": " + err.Error())
	}
	return r
}

func (q *Queue[T]) info() ChannelInfo {
	q.mu.Lock()
	subscribers := 0
	if q.claimed {
		subscribers = 1
	}
	q.mu.Unlock()
	return ChannelInfo{
		Name:           q.name,
		Kind:           KindQueue,
		Type:           reflect.TypeFor[T]().String(),
		Capacity:       q.capacity,
		Subscribers:    subscribers,
		MaxSubscribers: 1,
		Published:      q.sent.Load(),
	}
}

// QueueReceiver is the consuming side of a Queue.
type QueueReceiver[T any] struct {
	q *Queue[T]
}

// Recv waits for the next item until ctx is done.
func (r *QueueReceiver[T]) Recv(ctx context.Context) (T, error) {
	select {
	case v := <-r.q.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TryRecv returns the next item without waiting.
func (r *QueueReceiver[T]) TryRecv() (T, bool) {
	select {
	case v := <-r.q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Len reports the number of pending items.
func (r *QueueReceiver[T]) Len() int {
	return len(r.q.ch)
}
