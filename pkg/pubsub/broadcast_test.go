package pubsub

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBroadcast_PublishNeverBlocks(t *testing.T) {
	b := NewBroadcast[int]("TEST", Limits{Capacity: 2}, nil)
	p := b.MustPublisher()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			p.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked without subscribers")
	}
	if got := b.Available(); got != 2 {
		t.Errorf("Available() = %d, want 2", got)
	}
}

func TestBroadcast_SinglePublisher(t *testing.T) {
	b := NewBroadcast[int]("TEST", Limits{}, nil)
	if _, err := b.Publisher(); err != nil {
		t.Fatalf("first Publisher() error = %v", err)
	}
	if _, err := b.Publisher(); !errors.Is(err, ErrPublisherLimit) {
		t.Errorf("second Publisher() error = %v, want ErrPublisherLimit", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustPublisher() should panic when the publisher is taken")
		}
	}()
	b.MustPublisher()
}

func TestBroadcast_PublisherCloseFreesSlot(t *testing.T) {
	b := NewBroadcast[int]("TEST", Limits{}, nil)
	p := b.MustPublisher()
	p.Close()
	p.Publish(1)

	if b.Available() != 0 {
		t.Error("Publish after Close should be a no-op")
	}
	if _, err := b.Publisher(); err != nil {
		t.Errorf("Publisher() after Close error = %v", err)
	}
}

func TestBroadcast_SubscriberSeesOnlyLaterEvents(t *testing.T) {
	b := NewBroadcast[string]("TEST", Limits{}, nil)
	p := b.MustPublisher()
	p.Publish("before")

	s, err := b.Subscriber()
	if err != nil {
		t.Fatalf("Subscriber() error = %v", err)
	}
	defer s.Close()

	if v, ok := s.TryNext(); ok {
		t.Fatalf("TryNext() = %q, want nothing", v)
	}

	p.Publish("after")
	v, ok := s.TryNext()
	if !ok || v != "after" {
		t.Errorf("TryNext() = %q, %v, want after, true", v, ok)
	}
}

func TestBroadcast_EveryPublishObservedOnce(t *testing.T) {
	b := NewBroadcast[int]("TEST", Limits{}, nil)
	p := b.MustPublisher()

	s1, _ := b.Subscriber()
	s2, _ := b.Subscriber()
	defer s1.Close()
	defer s2.Close()

	p.Publish(7)
	p.Publish(7)

	for _, s := range []*Subscriber[int]{s1, s2} {
		count := 0
		for {
			v, ok := s.TryNext()
			if !ok {
				break
			}
			if v != 7 {
				t.Errorf("TryNext() = %d, want 7", v)
			}
			count++
		}
		if count != 2 {
			t.Errorf("observed %d events, want 2", count)
		}
	}
}

func TestBroadcast_LaggingSubscriber(t *testing.T) {
	b := NewBroadcast[int]("TEST", Limits{Capacity: 3}, nil)
	p := b.MustPublisher()
	s, _ := b.Subscriber()
	defer s.Close()

	for i := 1; i <= 5; i++ {
		p.Publish(i)
	}

	var got []int
	for {
		v, ok := s.TryNext()
		if !ok {
			break
		}
		got = append(got, v)
	}

	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if s.Lagged() != 2 {
		t.Errorf("Lagged() = %d, want 2", s.Lagged())
	}
}

func TestBroadcast_SubscriberLimit(t *testing.T) {
	b := NewBroadcast[int]("TEST", Limits{MaxSubscribers: 2}, nil)
	s1, _ := b.Subscriber()
	if _, err := b.Subscriber(); err != nil {
		t.Fatalf("second Subscriber() error = %v", err)
	}
	if _, err := b.Subscriber(); !errors.Is(err, ErrSubscriberLimit) {
		t.Fatalf("third Subscriber() error = %v, want ErrSubscriberLimit", err)
	}

	s1.Close()
	if _, err := b.Subscriber(); err != nil {
		t.Errorf("Subscriber() after Close error = %v", err)
	}
}

func TestBroadcast_NextWaits(t *testing.T) {
	b := NewBroadcast[int]("TEST", Limits{}, nil)
	p := b.MustPublisher()
	s, _ := b.Subscriber()
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result := make(chan int, 1)
	go func() {
		v, err := s.Next(ctx)
		if err != nil {
			result <- -1
			return
		}
		result <- v
	}()

	time.Sleep(10 * time.Millisecond)
	p.Publish(42)

	if v := <-result; v != 42 {
		t.Errorf("Next() = %d, want 42", v)
	}
}

func TestBroadcast_NextCancelled(t *testing.T) {
	b := NewBroadcast[int]("TEST", Limits{}, nil)
	s, _ := b.Subscriber()
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestBroadcast_ClosedSubscriber(t *testing.T) {
	b := NewBroadcast[int]("TEST", Limits{}, nil)
	s, _ := b.Subscriber()
	s.Close()
	s.Close()

	if _, _, err := s.TryNextErr(); !errors.Is(err, ErrClosed) {
		t.Errorf("TryNextErr() error = %v, want ErrClosed", err)
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Next() error = %v, want ErrClosed", err)
	}
	if b.info().Subscribers != 0 {
		t.Errorf("Subscribers = %d, want 0", b.info().Subscribers)
	}
}

func TestBroadcast_Observer(t *testing.T) {
	obs := &countingObserver{}
	b := NewBroadcast[int]("TEST", Limits{Capacity: 1}, obs)
	p := b.MustPublisher()
	s, _ := b.Subscriber()

	p.Publish(1)
	p.Publish(2)
	s.TryNext()
	s.Close()

	if obs.published != 2 {
		t.Errorf("published = %d, want 2", obs.published)
	}
	if obs.lagged != 1 {
		t.Errorf("lagged = %d, want 1", obs.lagged)
	}
	if obs.subscribed != 1 || obs.unsubscribed != 1 {
		t.Errorf("subscribed/unsubscribed = %d/%d, want 1/1", obs.subscribed, obs.unsubscribed)
	}
	if obs.name != "TEST" || obs.kind != KindBroadcast {
		t.Errorf("Channel(%q, %v), want TEST broadcast", obs.name, obs.kind)
	}
}

type countingObserver struct {
	name         string
	kind         Kind
	published    int
	lagged       uint64
	subscribed   int
	unsubscribed int
}

func (o *countingObserver) Channel(name string, kind Kind) ChannelObserver {
	o.name = name
	o.kind = kind
	return o
}

func (o *countingObserver) Published()      { o.published++ }
func (o *countingObserver) Lagged(n uint64) { o.lagged += n }
func (o *countingObserver) Subscribed()     { o.subscribed++ }
func (o *countingObserver) Unsubscribed()   { o.unsubscribed++ }
