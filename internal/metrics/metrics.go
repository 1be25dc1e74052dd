// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	// OrdersCreated counts successful admissions.
	OrdersCreated prometheus.Counter
	// OrdersPaid counts completed payments.
	OrdersPaid prometheus.Counter
	// OrdersCancelled counts cancellations that returned stock.
	OrdersCancelled prometheus.Counter
	// Rejections counts rejected admission attempts by reason.
	Rejections *prometheus.CounterVec
	// Compensations counts stock re-increments after a failed downstream step.
	Compensations prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seckill_orders_created_total",
			Help: "Orders admitted and persisted as unpaid",
		}),
		OrdersPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seckill_orders_paid_total",
			Help: "Orders transitioned to paid",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seckill_orders_cancelled_total",
			Help: "Orders cancelled with stock returned to the pool",
		}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seckill_rejections_total",
			Help: "Rejected admission attempts by reason",
		}, []string{"reason"}),
		Compensations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seckill_stock_compensations_total",
			Help: "Compensating stock increments after a failed step",
		}),
	}
	reg.MustRegister(m.OrdersCreated, m.OrdersPaid, m.OrdersCancelled, m.Rejections, m.Compensations)
	return m
}
