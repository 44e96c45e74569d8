// Package metrics exposes token lifecycle counters to prometheus. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	issued           prometheus.Counter
	redeemed         prometheus.Counter
	expired          prometheus.Counter
	deliveryRejected prometheus.Counter
	renderDuration   prometheus.Histogram
}

func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		issued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mailtoken",
			Name:      "tokens_issued_total",
			Help:      "Tokens registered after the mail server accepted the message.",
		}),
		redeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mailtoken",
			Name:      "tokens_redeemed_total",
			Help:      "Tokens redeemed before their expiry.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mailtoken",
			Name:      "tokens_expired_total",
			Help:      "Tokens removed by their expiry timer.",
		}),
		deliveryRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mailtoken",
			Name:      "delivery_rejected_total",
			Help:      "Messages for which no recipient was accepted.",
		}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mailtoken",
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering mail templates.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}
	collectors := []prometheus.Collector{m.issued, m.redeemed, m.expired, m.deliveryRejected, m.renderDuration}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Issued() {
	if m != nil {
		m.issued.Inc()
	}
}

func (m *Metrics) Redeemed() {
	if m != nil {
		m.redeemed.Inc()
	}
}

func (m *Metrics) Expired() {
	if m != nil {
		m.expired.Inc()
	}
}

func (m *Metrics) DeliveryRejected() {
	if m != nil {
		m.deliveryRejected.Inc()
	}
}

func (m *Metrics) ObserveRender(elapsed time.Duration) {
	if m != nil {
		m.renderDuration.Observe(elapsed.Seconds())
	}
}
