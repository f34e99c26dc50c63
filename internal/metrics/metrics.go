// Package metrics exposes play and redemption counters to Prometheus.
package metrics

import (
	"context"

	"github.com/mroshb/lid_lottery/internal/services"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lottery"

// Collector counts events by result. It is an event sink.
type Collector struct {
	plays       *prometheus.CounterVec
	redemptions *prometheus.CounterVec
}

func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		plays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plays_total",
			Help:      "Play calls by result.",
		}, []string{"result"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemptions_total",
			Help:      "Redeem calls by result.",
		}, []string{"result"}),
	}

	for _, collector := range []prometheus.Collector{c.plays, c.redemptions} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) Emit(_ context.Context, event services.Event) error {
	switch event.Kind {
	case services.EventPlay:
		c.plays.WithLabelValues(event.Result).Inc()
	case services.EventRedeem:
		c.redemptions.WithLabelValues(event.Result).Inc()
	}
	return nil
}
