// Package metrics exposes pubsub channel activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/ctrlgen/pkg/pubsub"
)

// Collector holds the Prometheus metrics of controller channels. It implements
// pubsub.Observer.
type Collector struct {
	Published   *prometheus.CounterVec
	Lagged      *prometheus.CounterVec
	Subscribers *prometheus.GaugeVec
	Channels    *prometheus.GaugeVec
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	labels := []string{"channel", "kind"}

	return &Collector{
		Published: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ctrlgen",
				Subsystem: "channel",
				Name:      "published_total",
				Help:      "Total number of values published or sent on a channel",
			},
			labels,
		),
		Lagged: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ctrlgen",
				Subsystem: "channel",
				Name:      "lagged_total",
				Help:      "Total number of events subscribers missed because the ring was overwritten",
			},
			labels,
		),
		Subscribers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ctrlgen",
				Subsystem: "channel",
				Name:      "subscribers",
				Help:      "Number of subscriber slots currently taken",
			},
			labels,
		),
		Channels: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ctrlgen",
				Name:      "channels",
				Help:      "Number of channels created, by kind",
			},
			[]string{"kind"},
		),
	}
}

// Channel implements pubsub.Observer. The label values are resolved once here so
// the returned observer never allocates.
func (c *Collector) Channel(name string, kind pubsub.Kind) pubsub.ChannelObserver {
	k := kind.String()
	c.Channels.WithLabelValues(k).Inc()
	return channelObserver{
		published:   c.Published.WithLabelValues(name, k),
		lagged:      c.Lagged.WithLabelValues(name, k),
		subscribers: c.Subscribers.WithLabelValues(name, k),
	}
}

type channelObserver struct {
	published   prometheus.Counter
	lagged      prometheus.Counter
	subscribers prometheus.Gauge
}

func (o channelObserver) Published()      { o.published.Inc() }
func (o channelObserver) Lagged(n uint64) { o.lagged.Add(float64(n)) }
func (o channelObserver) Subscribed()     { o.subscribers.Inc() }
func (o channelObserver) Unsubscribed()   { o.subscribers.Dec() }

var _ pubsub.Observer = (*Collector)(nil)
