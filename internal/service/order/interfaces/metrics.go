// internal/service/order/interfaces/metrics.go
package interfaces

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pointshop_orders_created_total",
		Help: "Number of orders successfully created.",
	})
	ordersPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pointshop_orders_paid_total",
		Help: "Number of orders successfully paid.",
	})
	ordersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pointshop_orders_cancelled_total",
		Help: "Number of orders successfully cancelled.",
	})
	orderFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pointshop_order_failures_total",
		Help: "Number of failed order operations, by operation.",
	}, []string{"op"})
	compensationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pointshop_order_compensation_failures_total",
		Help: "Number of operations whose saga compensation itself failed (manual reconciliation required).",
	})
)
