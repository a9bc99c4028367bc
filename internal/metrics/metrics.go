package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 业务计数器，/metrics 暴露给 Prometheus 抓取
var (
	ItemsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trading_items_created_total",
		Help: "Total number of items listed",
	})

	ItemsApproved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trading_items_approved_total",
		Help: "Total number of items approved by admins",
	})

	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trading_bookings_created_total",
		Help: "Total number of bookings created",
	})

	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trading_bookings_cancelled_total",
		Help: "Total number of bookings cancelled",
	})

	BookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trading_booking_conflicts_total",
		Help: "Total number of booking attempts rejected because the item was already booked",
	})
)
