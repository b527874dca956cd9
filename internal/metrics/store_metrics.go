package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics содержит метрики витрины: приём заказов, переходы статусов и отзывы.
type StoreMetrics struct {
	// Счётчики заказов
	ordersPlaced   prometheus.Counter
	ordersRejected *prometheus.CounterVec

	// Гистограмма времени оформления заказа
	intakeDuration prometheus.Histogram

	// Переходы статусов
	statusTransitions *prometheus.CounterVec

	// Отзывы и агрегат рейтинга
	reviewsCreated   prometheus.Counter
	reviewsRejected  *prometheus.CounterVec
	ratingRecomputes prometheus.Counter

	// Gauge для заказов в обработке
	activeOrders prometheus.Gauge
}

// NewStoreMetrics создаёт новый экземпляр метрик витрины.
func NewStoreMetrics() *StoreMetrics {
	return newStoreMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newStoreMetricsWithRegisterer(registerer prometheus.Registerer) *StoreMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StoreMetrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Total number of orders accepted by intake",
		}),
		ordersRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_rejected_total",
			Help: "Total number of rejected order attempts grouped by reason",
		}, []string{"reason"}),
		intakeDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_order_intake_duration_seconds",
			Help:    "Duration of order intake in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_status_transitions_total",
			Help: "Total number of applied order status transitions grouped by target status",
		}, []string{"to"}),
		reviewsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_reviews_created_total",
			Help: "Total number of reviews created",
		}),
		reviewsRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_reviews_rejected_total",
			Help: "Total number of rejected review attempts grouped by reason",
		}, []string{"reason"}),
		ratingRecomputes: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_rating_recomputes_total",
			Help: "Total number of product rating aggregate recomputations",
		}),
		activeOrders: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_active_orders",
			Help: "Number of orders currently in a non-terminal status",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderPlaced увеличивает счётчик принятых заказов.
func (m *StoreMetrics) RecordOrderPlaced() {
	m.ordersPlaced.Inc()
	m.activeOrders.Inc()
}

// RecordOrderRejected увеличивает счётчик отклонённых заказов.
func (m *StoreMetrics) RecordOrderRejected(reason string) {
	m.ordersRejected.WithLabelValues(reason).Inc()
}

// RecordIntakeDuration записывает время оформления заказа.
func (m *StoreMetrics) RecordIntakeDuration(duration time.Duration) {
	m.intakeDuration.Observe(duration.Seconds())
}

// RecordStatusTransition увеличивает счётчик переходов в указанный статус.
func (m *StoreMetrics) RecordStatusTransition(to string) {
	m.statusTransitions.WithLabelValues(to).Inc()
}

// RecordOrderFinished уменьшает количество активных заказов.
func (m *StoreMetrics) RecordOrderFinished() {
	m.activeOrders.Dec()
}

// RecordReviewCreated увеличивает счётчик созданных отзывов.
func (m *StoreMetrics) RecordReviewCreated() {
	m.reviewsCreated.Inc()
}

// RecordReviewRejected увеличивает счётчик отклонённых отзывов.
func (m *StoreMetrics) RecordReviewRejected(reason string) {
	m.reviewsRejected.WithLabelValues(reason).Inc()
}

// RecordRatingRecompute увеличивает счётчик пересчётов агрегата рейтинга.
func (m *StoreMetrics) RecordRatingRecompute() {
	m.ratingRecomputes.Inc()
}
