package pubsub

// Kind identifies a channel primitive.
type Kind int

const (
	KindBroadcast Kind = iota
	KindWatch
	KindQueue
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindBroadcast:
		return "broadcast"
	case KindWatch:
		return "watch"
	case KindQueue:
		return "queue"
	default:
		return "unknown"
	}
}

// Observer allows integration with metrics systems. Channel is called once when a
// channel is created; the returned ChannelObserver is then invoked on the hot path and
// must not block.
type Observer interface {
	Channel(name string, kind Kind) ChannelObserver
}

// ChannelObserver receives callbacks for a single channel.
type ChannelObserver interface {
	// Published is called after a value has been published or sent.
	Published()

	// Lagged is called when a subscriber discovers it missed n events.
	Lagged(n uint64)

	// Subscribed is called when a subscriber or receiver slot is taken.
	Subscribed()

	// Unsubscribed is called when a slot is released.
	Unsubscribed()
}

// NopObserver is a no-op implementation of Observer and ChannelObserver.
type NopObserver struct{}

func (NopObserver) Channel(string, Kind) ChannelObserver { return NopObserver{} }
func (NopObserver) Published()                          {}
func (NopObserver) Lagged(uint64)                       {}
func (NopObserver) Subscribed()                         {}
func (NopObserver) Unsubscribed()                       {}

func channelObserver(o Observer, name string, kind Kind) ChannelObserver {
	if o == nil {
		return NopObserver{}
	}
	if co := o.Channel(name, kind); co != nil {
		return co
	}
	return NopObserver{}
}
