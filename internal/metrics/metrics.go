// Package metrics mirrors the ticker feed into prometheus.
//
// A Collector is both a ticker.Observer (state, severity, price, retry
// delay) and an effect hook (connection attempts, scheduled reconnects,
// dropped frames). It owns its registry so several feeds, or tests, never
// collide on the default one.
package metrics

import (
	"net/http"

	"tickerfeed/internal/binance/ticker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tickerfeed"

var allStates = []ticker.ConnectionState{
	ticker.Disconnected,
	ticker.Connecting,
	ticker.Connected,
	ticker.ReconnectScheduled,
}

type Collector struct {
	registry *prometheus.Registry

	framesDropped      *prometheus.CounterVec
	connectionAttempts prometheus.Counter
	reconnects         prometheus.Counter
	published          prometheus.Counter

	state      *prometheus.GaugeVec
	severity   prometheus.Gauge
	price      prometheus.Gauge
	priceValid prometheus.Gauge
	retryDelay prometheus.Gauge
}

// New builds a Collector whose series carry stream as a constant label.
// withRuntime also registers the go and process collectors.
func New(stream string, withRuntime bool) *Collector {
	labels := prometheus.Labels{"stream": stream}
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "frames_dropped_total",
			Help:        "Inbound frames that did not produce a price update, by reason",
			ConstLabels: labels,
		}, []string{"reason"}),
		connectionAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "connection_attempts_total",
			Help:        "Transport connections opened",
			ConstLabels: labels,
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "reconnects_scheduled_total",
			Help:        "Reconnect timers armed after an error or disconnect",
			ConstLabels: labels,
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "snapshots_published_total",
			Help:        "Snapshots published to observers",
			ConstLabels: labels,
		}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "connection_state",
			Help:        "1 for the current connection state, 0 otherwise",
			ConstLabels: labels,
		}, []string{"state"}),
		severity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "status_severity",
			Help:        "Current status severity (0 info, 1 ok, 2 warning, 3 error)",
			ConstLabels: labels,
		}),
		price: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_price",
			Help:        "Last valid price received",
			ConstLabels: labels,
		}),
		priceValid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "price_valid",
			Help:        "1 while a price is shown, 0 while a placeholder is shown",
			ConstLabels: labels,
		}),
		retryDelay: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "retry_delay_seconds",
			Help:        "Delay of the pending reconnect timer, 0 when none is armed",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(
		c.framesDropped,
		c.connectionAttempts,
		c.reconnects,
		c.published,
		c.state,
		c.severity,
		c.price,
		c.priceValid,
		c.retryDelay,
	)
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c.setState(ticker.Disconnected)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector's registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Publish implements ticker.Observer.
func (c *Collector) Publish(s ticker.Snapshot) {
	c.published.Inc()
	c.setState(s.State)
	c.severity.Set(float64(s.Status.Severity))
	c.retryDelay.Set(s.RetryIn.Seconds())

	if s.Price.Valid {
		c.price.Set(s.Price.Raw.InexactFloat64())
		c.priceValid.Set(1)
	} else {
		c.priceValid.Set(0)
	}
}

// ObserveEffect is meant for ticker.WithEffectHook.
func (c *Collector) ObserveEffect(e ticker.Effect) {
	switch e := e.(type) {
	case ticker.OpenTransport:
		c.connectionAttempts.Inc()
	case ticker.ArmTimer:
		c.reconnects.Inc()
	case ticker.DropFrame:
		c.framesDropped.WithLabelValues(e.Reason.String()).Inc()
	}
}

func (c *Collector) setState(current ticker.ConnectionState) {
	for _, st := range allStates {
		v := 0.0
		if st == current {
			v = 1
		}
		c.state.WithLabelValues(st.String()).Set(v)
	}
}
