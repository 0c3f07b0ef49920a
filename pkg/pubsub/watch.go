package pubsub

import (
	"context"
	"reflect"
	"runtime"
	"sync"
)

// Watch is a latest-value channel: it retains only the most recent value and lets each
// receiver wait for a value newer than the last one it observed.
type Watch[T any] struct {
	name         string
	maxReceivers int
	obs          ChannelObserver

	mu          sync.Mutex
	value       T
	version     uint64 // 0 until the first Send
	senderTaken bool
	receivers   int
	slots       []watchSlot
	wakes       []chan struct{}
}

type watchSlot struct {
	used bool
	gen  uint64
	seen uint64
}

// NewWatch creates a standalone Watch channel with room for maxReceivers receivers.
func NewWatch[T any](name string, maxReceivers int, obs Observer) *Watch[T] {
	if maxReceivers <= 0 {
		maxReceivers = DefaultMaxSubscribers
	}
	w := &Watch[T]{
		name:         name,
		maxReceivers: maxReceivers,
		obs:          channelObserver(obs, name, KindWatch),
		slots:        make([]watchSlot, maxReceivers),
		wakes:        make([]chan struct{}, maxReceivers),
	}
	for i := range w.wakes {
		w.wakes[i] = make(chan struct{}, 1)
	}
	return w
}

// Name returns the channel name.
func (w *Watch[T]) Name() string {
	return w.name
}

// Peek returns the current value without affecting any receiver.
func (w *Watch[T]) Peek() (T, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value, w.version > 0
}

// Sender obtains the single sender of the channel. A second call returns
// ErrPublisherLimit.
func (w *Watch[T]) Sender() (*WatchSender[T], error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.senderTaken {
		return nil, ErrPublisherLimit
	}
	w.senderTaken = true
	return &WatchSender[T]{ch: w}, nil
}

// MustSender is like Sender but panics if the sender was already taken.
func (w *Watch[T]) MustSender() *WatchSender[T] {
	s, err := w.Sender()
	if err != nil {
		panic(w.name + ": " + err.Error())
	}
	return s
}

// Receiver obtains a receiver. The receiver starts at the current version: Changed
// returns only values sent after this call, while Get returns the current value.
func (w *Watch[T]) Receiver() (*WatchReceiver[T], error) {
	w.mu.Lock()
	idx := -1
	for i := range w.slots {
		if !w.slots[i].used {
			idx = i
			break
		}
	}
	if idx < 0 {
		w.mu.Unlock()
		return nil, ErrSubscriberLimit
	}
	slot := &w.slots[idx]
	slot.used = true
	slot.gen++
	slot.seen = w.version
	gen := slot.gen
	w.receivers++
	drain(w.wakes[idx])
	w.mu.Unlock()

	w.obs.Subscribed()

	r := &WatchReceiver[T]{ch: w, slot: idx, gen: gen}
	r.cleanup = runtime.AddCleanup(r, func(id slotID) { w.release(id.index, id.gen) }, slotID{idx, gen})
	return r, nil
}

func (w *Watch[T]) send(v T) {
	w.mu.Lock()
	w.value = v
	w.version++
	for i := range w.slots {
		if w.slots[i].used {
			notify(w.wakes[i])
		}
	}
	w.mu.Unlock()

	w.obs.Published()
}

// get returns the current value and marks it seen. When onlyNew is set, the value is
// returned only if it is newer than what the slot last saw.
func (w *Watch[T]) get(idx int, gen uint64, onlyNew bool) (v T, ok bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	slot := &w.slots[idx]
	if !slot.used || slot.gen != gen {
		return v, false, ErrClosed
	}
	if w.version == 0 {
		return v, false, nil
	}
	if onlyNew && slot.seen >= w.version {
		return v, false, nil
	}
	slot.seen = w.version
	return w.value, true, nil
}

func (w *Watch[T]) release(idx int, gen uint64) {
	w.mu.Lock()
	slot := &w.slots[idx]
	if !slot.used || slot.gen != gen {
		w.mu.Unlock()
		return
	}
	slot.used = false
	w.receivers--
	w.mu.Unlock()

	w.obs.Unsubscribed()
}

func (w *Watch[T]) info() ChannelInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	publishers := 0
	if w.senderTaken {
		publishers = 1
	}
	return ChannelInfo{
		Name:           w.name,
		Kind:           KindWatch,
		Type:           reflect.TypeFor[T]().String(),
		Capacity:       1,
		Publishers:     publishers,
		Subscribers:    w.receivers,
		MaxSubscribers: w.maxReceivers,
		Published:      w.version,
	}
}

// WatchSender is the write side of a Watch channel.
type WatchSender[T any] struct {
	ch *Watch[T]
}

// Send replaces the current value and wakes every receiver. It never blocks.
func (s *WatchSender[T]) Send(v T) {
	s.ch.send(v)
}

// WatchReceiver is the read side of a Watch channel. A WatchReceiver is meant to be used
// by one goroutine.
type WatchReceiver[T any] struct {
	ch      *Watch[T]
	slot    int
	gen     uint64
	closed  bool
	cleanup runtime.Cleanup
}

// Get returns the current value, if any value was ever sent, and marks it as seen.
func (r *WatchReceiver[T]) Get() (T, bool) {
	if r.closed {
		var zero T
		return zero, false
	}
	v, ok, _ := r.ch.get(r.slot, r.gen, false)
	return v, ok
}

// TryChanged returns the current value if it changed since the receiver last looked.
func (r *WatchReceiver[T]) TryChanged() (T, bool) {
	if r.closed {
		var zero T
		return zero, false
	}
	v, ok, _ := r.ch.get(r.slot, r.gen, true)
	return v, ok
}

// Changed waits until a value newer than the last seen one is sent and returns it.
// Intermediate values sent while the receiver was not looking are collapsed.
func (r *WatchReceiver[T]) Changed(ctx context.Context) (T, error) {
	for {
		if r.closed {
			var zero T
			return zero, ErrClosed
		}
		v, ok, err := r.ch.get(r.slot, r.gen, true)
		if err != nil || ok {
			return v, err
		}
		select {
		case <-r.ch.wakes[r.slot]:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Close releases the receiver slot.
func (r *WatchReceiver[T]) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.cleanup.Stop()
	r.ch.release(r.slot, r.gen)
}
