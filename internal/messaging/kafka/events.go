package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	EventTypeOrderCancelled     EventType = "order.cancelled"

	// Review события
	EventTypeReviewCreated EventType = "review.created"
	EventTypeReviewUpdated EventType = "review.updated"
	EventTypeReviewDeleted EventType = "review.deleted"
)

// Topics для Kafka
const (
	TopicOrderEvents  = "storefront.order.events"
	TopicReviewEvents = "storefront.review.events"
)

// OrderEvent представляет событие жизненного цикла заказа.
type OrderEvent struct {
	EventType   EventType `json:"event_type"`
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      int64     `json:"user_id"`
	Status      string    `json:"status"`
	TotalMinor  int64     `json:"total_minor,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ReviewEvent представляет событие жизненного цикла отзыва.
type ReviewEvent struct {
	EventType EventType `json:"event_type"`
	ReviewID  int64     `json:"review_id"`
	ProductID int64     `json:"product_id"`
	UserID    int64     `json:"user_id"`
	Rating    int32     `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderEvent создает новое событие заказа.
func NewOrderEvent(eventType EventType, order domain.Order) *OrderEvent {
	return &OrderEvent{
		EventType:   eventType,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		UserID:      order.UserID,
		Status:      string(order.Status),
		TotalMinor:  order.TotalMinor,
		Timestamp:   time.Now().UTC(),
	}
}

// NewReviewEvent создает новое событие отзыва.
func NewReviewEvent(eventType EventType, review domain.Review) *ReviewEvent {
	return &ReviewEvent{
		EventType: eventType,
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		Timestamp: time.Now().UTC(),
	}
}
