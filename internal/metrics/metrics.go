package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsOpen tracks currently open chat sockets.
	ConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tripchat_connections_open",
			Help: "Currently open websocket connections",
		},
	)

	// MessagesPersisted counts messages durably appended to the store.
	MessagesPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tripchat_messages_persisted_total",
			Help: "Total chat messages appended to the message store",
		},
	)

	// DeliveriesDropped counts per-recipient deliveries abandoned because a
	// member's queue was full or its connection was already gone.
	DeliveriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tripchat_deliveries_dropped_total",
			Help: "Total fan-out deliveries dropped for slow or closed members",
		},
	)

	// HistoryReplays counts history replays served to newly joined sockets.
	HistoryReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tripchat_history_replays_total",
			Help: "Total history replays sent on connect",
		},
	)

	// SendsRejected counts inbound frames dropped before persistence,
	// by reason ("unauthenticated", "malformed", "forbidden").
	SendsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tripchat_sends_rejected_total",
			Help: "Total inbound frames rejected before persistence",
		},
		[]string{"reason"},
	)
)
