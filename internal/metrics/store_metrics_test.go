package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewStoreMetrics(t *testing.T) {
	metrics := newStoreMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("newStoreMetricsWithRegisterer should not return nil")
	}

	if metrics.ordersPlaced == nil {
		t.Error("ordersPlaced counter should not be nil")
	}

	if metrics.ordersRejected == nil {
		t.Error("ordersRejected counter vec should not be nil")
	}

	if metrics.intakeDuration == nil {
		t.Error("intakeDuration histogram should not be nil")
	}

	if metrics.statusTransitions == nil {
		t.Error("statusTransitions counter vec should not be nil")
	}

	if metrics.reviewsCreated == nil {
		t.Error("reviewsCreated counter should not be nil")
	}

	if metrics.reviewsRejected == nil {
		t.Error("reviewsRejected counter vec should not be nil")
	}

	if metrics.ratingRecomputes == nil {
		t.Error("ratingRecomputes counter should not be nil")
	}

	if metrics.activeOrders == nil {
		t.Error("activeOrders gauge should not be nil")
	}
}

func TestNewStoreMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := newStoreMetricsWithRegisterer(reg)
	second := newStoreMetricsWithRegisterer(reg)

	first.RecordOrderPlaced()
	second.RecordOrderPlaced()

	metric := &dto.Metric{}
	if err := first.ordersPlaced.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected shared counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordOrderPlaced(t *testing.T) {
	metrics := newStoreMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOrderPlaced()
	metrics.RecordOrderPlaced()
	metrics.RecordOrderFinished()

	counter := &dto.Metric{}
	if err := metrics.ordersPlaced.Write(counter); err != nil {
		t.Fatalf("failed to write counter: %v", err)
	}
	if counter.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", counter.Counter.GetValue())
	}

	gauge := &dto.Metric{}
	if err := metrics.activeOrders.Write(gauge); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gauge.Gauge.GetValue() != 1.0 {
		t.Errorf("expected gauge value 1.0, got %f", gauge.Gauge.GetValue())
	}
}

func TestRecordOrderRejectedByReason(t *testing.T) {
	metrics := newStoreMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOrderRejected("insufficient_stock")
	metrics.RecordOrderRejected("insufficient_stock")
	metrics.RecordOrderRejected("validation")

	metric := &dto.Metric{}
	counter, err := metrics.ordersRejected.GetMetricWithLabelValues("insufficient_stock")
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	if err := counter.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordStatusTransition(t *testing.T) {
	metrics := newStoreMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordStatusTransition("processing")
	metrics.RecordStatusTransition("cancelled")
	metrics.RecordStatusTransition("processing")

	counter, err := metrics.statusTransitions.GetMetricWithLabelValues("processing")
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	metric := &dto.Metric{}
	if err := counter.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordIntakeDuration(t *testing.T) {
	metrics := newStoreMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordIntakeDuration(150 * time.Millisecond)
	metrics.RecordIntakeDuration(300 * time.Millisecond)

	metric := &dto.Metric{}
	if err := metrics.intakeDuration.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("expected 2 samples, got %d", metric.Histogram.GetSampleCount())
	}
}

func TestRecordReviewCounters(t *testing.T) {
	metrics := newStoreMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordReviewCreated()
	metrics.RecordReviewRejected("not_eligible")
	metrics.RecordRatingRecompute()
	metrics.RecordRatingRecompute()

	metric := &dto.Metric{}
	if err := metrics.ratingRecomputes.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2.0, got %f", metric.Counter.GetValue())
	}
}
