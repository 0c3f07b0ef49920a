/*
Package pubsub provides the fixed-capacity, in-process channel primitives used by
controllers generated with ctrlgen.

Three channel kinds are available:

  - Broadcast: a ring of discrete events with one publisher and a bounded number of
    subscribers. Each subscriber keeps its own cursor. A subscriber that falls more than
    Capacity events behind loses the oldest ones; the publisher never blocks.
  - Watch: holds only the most recent value. Receivers wait for a value newer than the
    last one they observed.
  - Queue: a bounded multi-producer, single-consumer queue carrying client requests to
    the owning goroutine.

# Registry

Channels are looked up by name in a Registry that is passed explicitly to the owner
constructor and to every client or subscriber constructor:

	reg := pubsub.NewRegistry(pubsub.WithLogger(logger))

	w := pubsub.MustWatch[Mode](reg, "CONTROLLER_MODE_CHANNEL", pubsub.DefaultMaxSubscribers)
	sender := w.MustSender()
	sender.Send(ModeNormal)

	r, err := w.Receiver()
	if err != nil {
	    return err
	}
	mode, err := r.Changed(ctx)

Senders and publishers are single-writer by construction: asking a channel for a second
sender returns ErrPublisherLimit, and the Must variants panic.

# Resource model

All buffers and wakeup channels are allocated when a channel is created. Publishing does
not allocate and never blocks, regardless of how many subscribers exist or how far
behind they are.
*/
package pubsub
