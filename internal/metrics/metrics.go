// Package metrics provides Prometheus instrumentation for the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsActive tracks currently registered live connections.
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_connections_active",
			Help: "Number of live connections in the registry",
		},
	)

	// MessagesTotal tracks relayed messages by delivery outcome.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Total messages persisted and relayed",
		},
		[]string{"delivery"},
	)

	// FramesRejectedTotal tracks inbound frames rejected before persistence.
	FramesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_frames_rejected_total",
			Help: "Total inbound frames rejected",
		},
		[]string{"reason"},
	)
)

// RecordMessage records a persisted message and whether the recipient was
// connected at delivery time.
func RecordMessage(delivered bool) {
	outcome := "offline"
	if delivered {
		outcome = "online"
	}
	MessagesTotal.WithLabelValues(outcome).Inc()
}

// RecordRejectedFrame records an inbound frame that never reached the store.
func RecordRejectedFrame(reason string) {
	FramesRejectedTotal.WithLabelValues(reason).Inc()
}
