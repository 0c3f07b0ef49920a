package pubsub

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueue_SendRecv(t *testing.T) {
	q := NewQueue[int]("CMD", 2, nil)
	r := q.MustReceiver()
	ctx := context.Background()

	if err := q.Send(ctx, 1); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !q.TrySend(2) {
		t.Fatal("TrySend() should succeed with room left")
	}
	if q.TrySend(3) {
		t.Error("TrySend() should fail on a full queue")
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}

	for _, want := range []int{1, 2} {
		v, err := r.Recv(ctx)
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		if v != want {
			t.Errorf("Recv() = %d, want %d", v, want)
		}
	}
	if _, ok := r.TryRecv(); ok {
		t.Error("TryRecv() on an empty queue should report nothing")
	}
}

func TestQueue_SendWaitsForRoom(t *testing.T) {
	q := NewQueue[int]("CMD", 1, nil)
	q.TrySend(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := q.Send(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send() error = %v, want DeadlineExceeded", err)
	}
}

func TestQueue_SingleReceiver(t *testing.T) {
	q := NewQueue[int]("CMD", 0, nil)
	q.MustReceiver()
	if _, err := q.Receiver(); !errors.Is(err, ErrSubscriberLimit) {
		t.Errorf("second Receiver() error = %v, want ErrSubscriberLimit", err)
	}
	if q.info().Capacity != DefaultCommandCapacity {
		t.Errorf("Capacity = %d, want %d", q.info().Capacity, DefaultCommandCapacity)
	}
}
