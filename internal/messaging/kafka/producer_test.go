package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestProducer_PublishEvent(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndSucceed()

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	event := NewOrderEvent(EventTypeOrderCreated, domain.Order{
		ID:         42,
		Number:     "ORD-2025-000042",
		UserID:     7,
		Status:     domain.OrderStatusPending,
		TotalMinor: 125000,
	})

	if err := producer.PublishEvent(TopicOrderEvents, event.OrderNumber, event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEventSendError(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	event := NewReviewEvent(EventTypeReviewCreated, domain.Review{
		ID:        3,
		ProductID: 11,
		UserID:    7,
		Rating:    5,
	})

	if err := producer.PublishEvent(TopicReviewEvents, "11", event); err == nil {
		t.Fatal("expected publish error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewOrderEvent(t *testing.T) {
	t.Parallel()

	order := domain.Order{
		ID:         17,
		Number:     "ORD-2025-000017",
		UserID:     9,
		Status:     domain.OrderStatusShipped,
		TotalMinor: 349900,
	}

	event := NewOrderEvent(EventTypeOrderStatusChanged, order)

	if event.EventType != EventTypeOrderStatusChanged {
		t.Errorf("expected event type %s, got %s", EventTypeOrderStatusChanged, event.EventType)
	}
	if event.OrderID != order.ID {
		t.Errorf("expected order id %d, got %d", order.ID, event.OrderID)
	}
	if event.OrderNumber != order.Number {
		t.Errorf("expected order number %s, got %s", order.Number, event.OrderNumber)
	}
	if event.UserID != order.UserID {
		t.Errorf("expected user id %d, got %d", order.UserID, event.UserID)
	}
	if event.Status != string(domain.OrderStatusShipped) {
		t.Errorf("expected status %s, got %s", domain.OrderStatusShipped, event.Status)
	}
	if event.TotalMinor != order.TotalMinor {
		t.Errorf("expected total %d, got %d", order.TotalMinor, event.TotalMinor)
	}

	// Проверяем, что timestamp установлен
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}
}

func TestNewReviewEvent(t *testing.T) {
	t.Parallel()

	review := domain.Review{
		ID:        5,
		ProductID: 21,
		UserID:    9,
		Rating:    4,
	}

	event := NewReviewEvent(EventTypeReviewDeleted, review)

	if event.EventType != EventTypeReviewDeleted {
		t.Errorf("expected event type %s, got %s", EventTypeReviewDeleted, event.EventType)
	}
	if event.ReviewID != review.ID {
		t.Errorf("expected review id %d, got %d", review.ID, event.ReviewID)
	}
	if event.ProductID != review.ProductID {
		t.Errorf("expected product id %d, got %d", review.ProductID, event.ProductID)
	}
	if event.UserID != review.UserID {
		t.Errorf("expected user id %d, got %d", review.UserID, event.UserID)
	}
	if event.Rating != review.Rating {
		t.Errorf("expected rating %d, got %d", review.Rating, event.Rating)
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
}
