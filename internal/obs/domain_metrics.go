package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// OrdersCreatedTotal counts order creation outcomes.
	OrdersCreatedTotal *prometheus.CounterVec
	// OrderStatusTransitions counts order status changes by target status.
	OrderStatusTransitions *prometheus.CounterVec
	// TrendQueriesTotal counts customer trend aggregation outcomes.
	TrendQueriesTotal *prometheus.CounterVec
	// TrendQueryLatency records trend aggregation latency in milliseconds.
	TrendQueryLatency prometheus.Histogram
	// PresignIssuedTotal counts issued pre-signed upload URLs by asset kind.
	PresignIssuedTotal *prometheus.CounterVec
	// InviteEmailsTotal counts team invitation email dispatch outcomes.
	InviteEmailsTotal *prometheus.CounterVec
	// ChatMessagesTotal counts chat messages accepted by the API.
	ChatMessagesTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Count of order creation outcomes.",
		}, []string{"result"})
		OrderStatusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Count of order status transitions by target status.",
		}, []string{"status"})
		TrendQueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "customer_trend_queries_total",
			Help:      "Count of customer trend aggregation outcomes.",
		}, []string{"result"})
		TrendQueryLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "customer_trend_query_duration_ms",
			Help:      "Latency of the customer trend aggregation query in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		})
		PresignIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_presign_issued_total",
			Help:      "Count of issued pre-signed upload URLs by asset kind.",
		}, []string{"kind"})
		InviteEmailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invite_emails_total",
			Help:      "Count of team invitation email dispatch outcomes.",
		}, []string{"result"})
		ChatMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Number of chat messages accepted by the API.",
		})

		mustRegisterCollector(reg, OrdersCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersCreatedTotal = v
			}
		})
		mustRegisterCollector(reg, OrderStatusTransitions, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrderStatusTransitions = v
			}
		})
		mustRegisterCollector(reg, TrendQueriesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TrendQueriesTotal = v
			}
		})
		mustRegisterCollector(reg, TrendQueryLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				TrendQueryLatency = v
			}
		})
		mustRegisterCollector(reg, PresignIssuedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PresignIssuedTotal = v
			}
		})
		mustRegisterCollector(reg, InviteEmailsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				InviteEmailsTotal = v
			}
		})
		mustRegisterCollector(reg, ChatMessagesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ChatMessagesTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
