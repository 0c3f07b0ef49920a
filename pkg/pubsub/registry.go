package pubsub

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// ChannelInfo is a point-in-time description of a registered channel.
type ChannelInfo struct {
	Name           string `json:"name" yaml:"name"`
	Kind           Kind   `json:"-" yaml:"-"`
	KindName       string `json:"kind" yaml:"kind"`
	Type           string `json:"type" yaml:"type"`
	Capacity       int    `json:"capacity" yaml:"capacity"`
	Publishers     int    `json:"publishers" yaml:"publishers"`
	Subscribers    int    `json:"subscribers" yaml:"subscribers"`
	MaxSubscribers int    `json:"max_subscribers" yaml:"max_subscribers"`
	Published      uint64 `json:"published" yaml:"published"`
}

type channel interface {
	info() ChannelInfo
}

// Registry owns the channels shared between a controller's owner and its clients. It
// replaces process-wide channel variables: every constructor that needs a channel takes
// the registry explicitly.
type Registry struct {
	mu       sync.Mutex
	channels map[string]channel
	logger   zerolog.Logger
	observer Observer
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for channel creation and conflicts.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithObserver attaches an observer to every channel created by the registry.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		channels: make(map[string]channel),
		logger:   zerolog.Nop(),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// lookup returns the channel registered under name, creating it on first use. The
// limits of the first call win; later calls only share the existing channel.
func lookup[C channel](r *Registry, name string, kind Kind, create func(Observer) C) (C, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.channels[name]; ok {
		c, ok := existing.(C)
		if !ok {
			var zero C
			info := existing.info()
			r.logger.Error().
				Str("channel", name).
				Str("have", info.Kind.String()+" "+info.Type).
				Str("want", kind.String()).
				Msg("channel kind mismatch")
			return zero, fmt.Errorf("%s: %w", name, ErrKindMismatch)
		}
		return c, nil
	}

	c := create(r.observer)
	r.channels[name] = c
	r.logger.Debug().
		Str("channel", name).
		Str("kind", kind.String()).
		Msg("channel created")
	return c, nil
}

// BroadcastFor returns the Broadcast channel registered under name, creating it with
// limits if it does not exist yet.
func BroadcastFor[T any](r *Registry, name string, limits Limits) (*Broadcast[T], error) {
	return lookup(r, name, KindBroadcast, func(o Observer) *Broadcast[T] {
		return NewBroadcast[T](name, limits, o)
	})
}

// MustBroadcast is like BroadcastFor but panics on a kind or type mismatch.
func MustBroadcast[T any](r *Registry, name string, limits Limits) *Broadcast[T] {
	b, err := BroadcastFor[T](r, name, limits)
	if err != nil {
		panic(err)
	}
	return b
}

// WatchFor returns the Watch channel registered under name, creating it if it does not
// exist yet.
func WatchFor[T any](r *Registry, name string, maxReceivers int) (*Watch[T], error) {
	return lookup(r, name, KindWatch, func(o Observer) *Watch[T] {
		return NewWatch[T](name, maxReceivers, o)
	})
}

// MustWatch is like WatchFor but panics on a kind or type mismatch.
func MustWatch[T any](r *Registry, name string, maxReceivers int) *Watch[T] {
	w, err := WatchFor[T](r, name, maxReceivers)
	if err != nil {
		panic(err)
	}
	return w
}

// QueueFor returns the Queue registered under name, creating it if it does not exist yet.
func QueueFor[T any](r *Registry, name string, capacity int) (*Queue[T], error) {
	return lookup(r, name, KindQueue, func(o Observer) *Queue[T] {
		return NewQueue[T](name, capacity, o)
	})
}

// MustQueue is like QueueFor but panics on a kind or type mismatch.
func MustQueue[T any](r *Registry, name string, capacity int) *Queue[T] {
	q, err := QueueFor[T](r, name, capacity)
	if err != nil {
		panic(err)
	}
	return q
}

// Lookup returns the description of a single channel.
func (r *Registry) Lookup(name string) (ChannelInfo, bool) {
	r.mu.Lock()
	c, ok := r.channels[name]
	r.mu.Unlock()
	if !ok {
		return ChannelInfo{}, false
	}
	return withKindName(c.info()), true
}

// Channels returns a snapshot of every registered channel, sorted by name.
func (r *Registry) Channels() []ChannelInfo {
	r.mu.Lock()
	chans := make([]channel, 0, len(r.channels))
	for _, c := range r.channels {
		chans = append(chans, c)
	}
	r.mu.Unlock()

	infos := make([]ChannelInfo, 0, len(chans))
	for _, c := range chans {
		infos = append(infos, withKindName(c.info()))
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// Len returns the number of registered channels.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

func withKindName(info ChannelInfo) ChannelInfo {
	info.KindName = info.Kind.String()
	return info
}
