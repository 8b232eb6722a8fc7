// Package metrics is the prometheus registry shared by the bridge's
// components, grounded on go-server/internal/metrics and
// go-server-3/internal/metrics. Callers update a Registry handed to them;
// only the demo binary in cmd/ opens an HTTP listener for it.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every gauge/counter the bridge updates.
type Registry struct {
	ConnectionState  prometheus.Gauge
	CommandsTotal    *prometheus.CounterVec // label: result (ok|fail)
	ResponsesDropped prometheus.Counter     // response with no matching pending entry
	PublishesTotal   *prometheus.CounterVec // label: trigger (full|position|refresh|startup)
	PublishSkipped   prometheus.Counter     // getStatus failed, tick skipped
	ReconnectsTotal  prometheus.Counter
	WorkerPoolSync   prometheus.Counter // tasks that ran synchronously (queue full)
}

// NewRegistry creates and registers every metric against reg.
func NewRegistry(reg prometheus.Registerer, namespace string) *Registry {
	r := &Registry{
		ConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transport_connection_state",
			Help:      "Current transport connection state (0=disconnected,1=connecting,2=connected,3=error).",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands dispatched, by result.",
		}, []string{"result"}),
		ResponsesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_dropped_total",
			Help:      "Responses received with no matching pending command.",
		}),
		PublishesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_publishes_total",
			Help:      "State envelopes published, by trigger kind.",
		}, []string{"trigger"}),
		PublishSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_poll_skipped_total",
			Help:      "Status publisher ticks skipped because getStatus failed.",
		}),
		ReconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_reconnects_total",
			Help:      "Transport reconnect events observed.",
		}),
		WorkerPoolSync: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatcher_synchronous_tasks_total",
			Help:      "Dispatcher tasks executed synchronously because the worker queue was full.",
		}),
	}

	reg.MustRegister(
		r.ConnectionState,
		r.CommandsTotal,
		r.ResponsesDropped,
		r.PublishesTotal,
		r.PublishSkipped,
		r.ReconnectsTotal,
		r.WorkerPoolSync,
	)

	return r
}
