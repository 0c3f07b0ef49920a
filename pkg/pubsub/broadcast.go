package pubsub

import (
	"context"
	"reflect"
	"runtime"
	"sync"
)

// Default limits, matching the capacities generated controllers use unless configured
// otherwise.
const (
	DefaultCapacity        = 8
	DefaultSignalCapacity  = 8
	DefaultMaxPublishers   = 1
	DefaultMaxSubscribers  = 16
	DefaultCommandCapacity = 8
)

// Limits bounds a Broadcast channel. Zero fields take the package defaults.
type Limits struct {
	// Capacity is the number of events retained for lagging subscribers.
	Capacity int

	// MaxSubscribers is the number of subscriber slots.
	MaxSubscribers int

	// MaxPublishers is the number of publishers that may be obtained.
	MaxPublishers int
}

func (l Limits) normalize() Limits {
	if l.Capacity <= 0 {
		l.Capacity = DefaultCapacity
	}
	if l.MaxSubscribers <= 0 {
		l.MaxSubscribers = DefaultMaxSubscribers
	}
	if l.MaxPublishers <= 0 {
		l.MaxPublishers = DefaultMaxPublishers
	}
	return l
}

// Broadcast is a fixed-depth ring of events fanned out to independent subscribers.
type Broadcast[T any] struct {
	name   string
	limits Limits
	obs    ChannelObserver

	mu          sync.Mutex
	ring        []T
	head        uint64 // id of the oldest retained event
	next        uint64 // id the next published event receives
	publishers  int
	subscribers int
	slots       []broadcastSlot

	// wakes[i] belongs to slots[i]; never reassigned after construction.
	wakes []chan struct{}
}

type broadcastSlot struct {
	used   bool
	gen    uint64
	cursor uint64
	lagged uint64
}

// NewBroadcast creates a standalone Broadcast channel. Most callers obtain channels
// through a Registry instead.
func NewBroadcast[T any](name string, limits Limits, obs Observer) *Broadcast[T] {
	limits = limits.normalize()
	b := &Broadcast[T]{
		name:   name,
		limits: limits,
		obs:    channelObserver(obs, name, KindBroadcast),
		ring:   make([]T, limits.Capacity),
		slots:  make([]broadcastSlot, limits.MaxSubscribers),
		wakes:  make([]chan struct{}, limits.MaxSubscribers),
	}
	for i := range b.wakes {
		b.wakes[i] = make(chan struct{}, 1)
	}
	return b
}

// Name returns the channel name.
func (b *Broadcast[T]) Name() string {
	return b.name
}

// Limits returns the normalized limits of the channel.
func (b *Broadcast[T]) Limits() Limits {
	return b.limits
}

// Publisher obtains a publisher. It fails with ErrPublisherLimit once MaxPublishers
// publishers are live.
func (b *Broadcast[T]) Publisher() (*Publisher[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.publishers >= b.limits.MaxPublishers {
		return nil, ErrPublisherLimit
	}
	b.publishers++
	return &Publisher[T]{ch: b}, nil
}

// MustPublisher is like Publisher but panics on failure. Generated constructors use it
// because they request exactly one publisher per channel.
func (b *Broadcast[T]) MustPublisher() *Publisher[T] {
	p, err := b.Publisher()
	if err != nil {
		panic(b.name + ": " + err.Error())
	}
	return p
}

// Subscriber obtains a subscriber that observes events published from now on. It fails
// with ErrSubscriberLimit when every slot is taken.
func (b *Broadcast[T]) Subscriber() (*Subscriber[T], error) {
	b.mu.Lock()
	idx := -1
	for i := range b.slots {
		if !b.slots[i].used {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		return nil, ErrSubscriberLimit
	}
	slot := &b.slots[idx]
	slot.used = true
	slot.gen++
	slot.cursor = b.next
	slot.lagged = 0
	gen := slot.gen
	b.subscribers++
	drain(b.wakes[idx])
	b.mu.Unlock()

	b.obs.Subscribed()

	s := &Subscriber[T]{ch: b, slot: idx, gen: gen}
	s.cleanup = runtime.AddCleanup(s, func(id slotID) { b.release(id.index, id.gen) }, slotID{idx, gen})
	return s, nil
}

// Available reports the number of events currently retained.
func (b *Broadcast[T]) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.next - b.head)
}

func (b *Broadcast[T]) publish(v T) {
	b.mu.Lock()
	capacity := uint64(len(b.ring))
	if b.next-b.head == capacity {
		b.head++
	}
	b.ring[b.next%capacity] = v
	b.next++
	for i := range b.slots {
		if b.slots[i].used {
			notify(b.wakes[i])
		}
	}
	b.mu.Unlock()

	b.obs.Published()
}

// read returns the next unread event for a slot.
func (b *Broadcast[T]) read(idx int, gen uint64) (v T, ok bool, err error) {
	b.mu.Lock()
	slot := &b.slots[idx]
	if !slot.used || slot.gen != gen {
		b.mu.Unlock()
		return v, false, ErrClosed
	}

	var lagged uint64
	if slot.cursor < b.head {
		lagged = b.head - slot.cursor
		slot.lagged += lagged
		slot.cursor = b.head
	}
	if slot.cursor < b.next {
		v = b.ring[slot.cursor%uint64(len(b.ring))]
		slot.cursor++
		ok = true
	}
	b.mu.Unlock()

	if lagged > 0 {
		b.obs.Lagged(lagged)
	}
	return v, ok, nil
}

func (b *Broadcast[T]) release(idx int, gen uint64) {
	b.mu.Lock()
	slot := &b.slots[idx]
	if !slot.used || slot.gen != gen {
		b.mu.Unlock()
		return
	}
	slot.used = false
	b.subscribers--
	b.mu.Unlock()

	b.obs.Unsubscribed()
}

func (b *Broadcast[T]) releasePublisher() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishers > 0 {
		b.publishers--
	}
}

func (b *Broadcast[T]) info() ChannelInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ChannelInfo{
		Name:           b.name,
		Kind:           KindBroadcast,
		Type:           reflect.TypeFor[T]().String(),
		Capacity:       b.limits.Capacity,
		Publishers:     b.publishers,
		Subscribers:    b.subscribers,
		MaxSubscribers: b.limits.MaxSubscribers,
		Published:      b.next,
	}
}

// Publisher is the write side of a Broadcast channel.
type Publisher[T any] struct {
	ch     *Broadcast[T]
	closed bool
}

// Publish appends v to the ring and wakes every subscriber. It never blocks: when the
// ring is full the oldest event is overwritten and subscribers that had not read it see
// it as lagged.
func (p *Publisher[T]) Publish(v T) {
	if p.closed {
		return
	}
	p.ch.publish(v)
}

// Close releases the publisher slot. Publishing after Close is a no-op.
func (p *Publisher[T]) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.ch.releasePublisher()
}

// Subscriber is the read side of a Broadcast channel. A Subscriber is meant to be used
// by one goroutine.
type Subscriber[T any] struct {
	ch      *Broadcast[T]
	slot    int
	gen     uint64
	closed  bool
	cleanup runtime.Cleanup
}

type slotID struct {
	index int
	gen   uint64
}

// Next waits for the next event. Events lost to overflow are skipped and added to
// Lagged.
func (s *Subscriber[T]) Next(ctx context.Context) (T, error) {
	for {
		v, ok, err := s.TryNextErr()
		if err != nil || ok {
			return v, err
		}
		select {
		case <-s.ch.wakes[s.slot]:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryNext returns the next event without waiting.
func (s *Subscriber[T]) TryNext() (T, bool) {
	v, ok, _ := s.TryNextErr()
	return v, ok
}

// TryNextErr is like TryNext but reports ErrClosed.
func (s *Subscriber[T]) TryNextErr() (T, bool, error) {
	if s.closed {
		var zero T
		return zero, false, ErrClosed
	}
	return s.ch.read(s.slot, s.gen)
}

// Lagged returns the total number of events this subscriber missed.
func (s *Subscriber[T]) Lagged() uint64 {
	s.ch.mu.Lock()
	defer s.ch.mu.Unlock()
	slot := s.ch.slots[s.slot]
	if !slot.used || slot.gen != s.gen {
		return 0
	}
	return slot.lagged
}

// Close releases the subscriber slot.
func (s *Subscriber[T]) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cleanup.Stop()
	s.ch.release(s.slot, s.gen)
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func drain(ch chan struct{}) {
	select {
	case <-ch:
	default:
	}
}
