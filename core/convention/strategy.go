package convention

import (
	"github.com/artpar/ctrlgen/core/schema"
	"github.com/artpar/ctrlgen/pkg/pubsub"
)

// Options are the generation-wide defaults applied while deriving a controller.
type Options struct {
	// DefaultStrategy applies to published fields without an explicit strategy.
	DefaultStrategy schema.Strategy

	// Capacity is the history depth of broadcast channels for published fields.
	Capacity int

	// SignalCapacity is the history depth of signal channels.
	SignalCapacity int

	// MaxSubscribers is the subscriber limit of every published channel.
	MaxSubscribers int

	// CommandCapacity is the depth of the client command queue.
	CommandCapacity int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		DefaultStrategy: schema.StrategyLatest,
		Capacity:        pubsub.DefaultCapacity,
		SignalCapacity:  pubsub.DefaultSignalCapacity,
		MaxSubscribers:  pubsub.DefaultMaxSubscribers,
		CommandCapacity: pubsub.DefaultCommandCapacity,
	}
}

func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.DefaultStrategy == schema.StrategyUnset {
		o.DefaultStrategy = def.DefaultStrategy
	}
	if o.Capacity <= 0 {
		o.Capacity = def.Capacity
	}
	if o.SignalCapacity <= 0 {
		o.SignalCapacity = def.SignalCapacity
	}
	if o.MaxSubscribers <= 0 {
		o.MaxSubscribers = def.MaxSubscribers
	}
	if o.CommandCapacity <= 0 {
		o.CommandCapacity = def.CommandCapacity
	}
	return o
}

// ChannelPlan is the channel primitive and limits chosen for a published field or
// signal.
type ChannelPlan struct {
	Strategy       schema.Strategy
	Kind           pubsub.Kind
	Capacity       int
	MaxSubscribers int
	MaxPublishers  int
}

// SelectStrategy resolves the strategy of a published field: an explicit
// publish(latest) or publish(history) wins, otherwise the configured default applies.
func SelectStrategy(f schema.FieldDescriptor, def schema.Strategy) schema.Strategy {
	if f.Strategy != schema.StrategyUnset {
		return f.Strategy
	}
	if def == schema.StrategyUnset {
		return schema.StrategyLatest
	}
	return def
}

// PlanField chooses the channel for a published field.
func PlanField(f schema.FieldDescriptor, opts Options) ChannelPlan {
	opts = opts.normalize()
	strategy := SelectStrategy(f, opts.DefaultStrategy)
	if strategy == schema.StrategyLatest {
		return ChannelPlan{
			Strategy:       strategy,
			Kind:           pubsub.KindWatch,
			Capacity:       1,
			MaxSubscribers: opts.MaxSubscribers,
			MaxPublishers:  pubsub.DefaultMaxPublishers,
		}
	}
	return ChannelPlan{
		Strategy:       strategy,
		Kind:           pubsub.KindBroadcast,
		Capacity:       opts.Capacity,
		MaxSubscribers: opts.MaxSubscribers,
		MaxPublishers:  pubsub.DefaultMaxPublishers,
	}
}

// PlanSignal chooses the channel for a signal. Signals are discrete events and always
// use a broadcast channel.
func PlanSignal(opts Options) ChannelPlan {
	opts = opts.normalize()
	return ChannelPlan{
		Strategy:       schema.StrategyHistory,
		Kind:           pubsub.KindBroadcast,
		Capacity:       opts.SignalCapacity,
		MaxSubscribers: opts.MaxSubscribers,
		MaxPublishers:  pubsub.DefaultMaxPublishers,
	}
}
