// Package metrics exposes the server's Prometheus instrumentation.
//
// Every method on *Recorder is nil-receiver safe: a nil *Recorder is a
// fully functional no-op, so store and server code records metrics
// unconditionally instead of branching on "is metrics enabled" at
// every call site. Grounded on xendarboh-katzenpost's use of
// prometheus/client_golang for daemon instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the counters and gauges this server publishes. It
// owns a private prometheus.Registry rather than registering against
// the global DefaultRegisterer, so more than one Recorder can exist in
// the same process (useful in tests that spin up several stores).
type Recorder struct {
	registry *prometheus.Registry

	connectionsAccepted prometheus.Counter
	connectionsActive   prometheus.Gauge
	commandsTotal       *prometheus.CounterVec
	keysExpiredTotal    prometheus.Counter
	publishMessages     prometheus.Counter
	publishSubscribers  prometheus.Histogram
}

// NewRecorder builds a Recorder and registers its collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		connectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "respkv_connections_accepted_total",
			Help: "Total TCP connections accepted by the listener.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "respkv_connections_active",
			Help: "Connections currently being served.",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "respkv_commands_total",
			Help: "Commands executed, by command name.",
		}, []string{"command"}),
		keysExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "respkv_keys_expired_total",
			Help: "Keys removed by the background purge task.",
		}),
		publishMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "respkv_publish_messages_total",
			Help: "Messages accepted by PUBLISH, regardless of subscriber count.",
		}),
		publishSubscribers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "respkv_publish_subscribers",
			Help:    "Subscriber count observed at PUBLISH send time.",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		}),
	}
	r.registry.MustRegister(
		r.connectionsAccepted,
		r.connectionsActive,
		r.commandsTotal,
		r.keysExpiredTotal,
		r.publishMessages,
		r.publishSubscribers,
	)
	return r
}

// Registry exposes the underlying registry for HTTP exposition.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ConnectionAccepted() {
	if r == nil {
		return
	}
	r.connectionsAccepted.Inc()
	r.connectionsActive.Inc()
}

func (r *Recorder) ConnectionClosed() {
	if r == nil {
		return
	}
	r.connectionsActive.Dec()
}

func (r *Recorder) Command(name string) {
	if r == nil {
		return
	}
	r.commandsTotal.WithLabelValues(name).Inc()
}

func (r *Recorder) KeysExpired(n int) {
	if r == nil || n == 0 {
		return
	}
	r.keysExpiredTotal.Add(float64(n))
}

func (r *Recorder) Published(subscribers int) {
	if r == nil {
		return
	}
	r.publishMessages.Inc()
	r.publishSubscribers.Observe(float64(subscribers))
}
