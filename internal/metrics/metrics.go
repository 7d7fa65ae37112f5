// Package metrics exposes Prometheus counters for the order engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perpengine_orders_accepted_total",
		Help: "Orders that passed place validation.",
	})

	OrdersRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perpengine_orders_rejected_total",
		Help: "Orders rejected by place validation, by reason.",
	}, []string{"reason"})

	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perpengine_orders_cancelled_total",
		Help: "Orders cancelled.",
	})

	Matches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perpengine_matches_total",
		Help: "Order pairs matched.",
	})

	Liquidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perpengine_liquidations_total",
		Help: "Liquidation fills executed.",
	})
)
