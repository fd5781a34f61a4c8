// Package metrics exposes the bridge's Prometheus collectors. Label
// cardinality is kept bounded: the only label in use is the message stream
// name (direct/group/urgent).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// FramesRead counts JSON frames decoded from the JS8Call socket.
	FramesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "js8call_frames_read_total",
		Help: "Total number of JSON frames decoded from the JS8Call socket.",
	})

	// FramesDropped counts lines that failed JSON decoding or carried a
	// malformed directed value.
	FramesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "js8call_frames_dropped_total",
		Help: "Total number of malformed or undecodable JS8Call frames dropped.",
	})

	// Reconnects counts transitions from Connected to Disconnected.
	Reconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "js8call_link_reconnects_total",
		Help: "Total number of JS8Call link disconnects requiring a reconnect.",
	})

	// MessagesForwarded counts inbound messages fanned out, by stream.
	MessagesForwarded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_messages_forwarded_total",
		Help: "Total number of radio messages forwarded to the mesh network.",
	}, []string{"stream"})

	// Deliveries counts individual per-recipient delivery attempts.
	Deliveries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_deliveries_total",
		Help: "Total number of per-recipient delivery attempts.",
	})

	// DeliveryFailures counts per-recipient deliveries whose send failed.
	DeliveryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bridge_delivery_failures_total",
		Help: "Total number of per-recipient deliveries that failed.",
	})
)

func init() {
	prometheus.MustRegister(
		FramesRead,
		FramesDropped,
		Reconnects,
		MessagesForwarded,
		Deliveries,
		DeliveryFailures,
	)
}
