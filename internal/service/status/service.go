package status

import (
	"encoding/json"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Service применяет переходы статусов по явной таблице разрешённых переходов.
// Повторная установка текущего статуса идемпотентна и не порождает событий.
type Service struct {
	orders        domain.OrderRepository
	outbox        domain.OutboxRepository
	timeline      domain.TimelineRepository
	logger        *log.Entry
	metrics       *metrics.StoreMetrics
	kafkaProducer *kafka.Producer
}

// NewService создаёт рабочий экземпляр сервиса статусов.
func NewService(
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-status")
	}
	return &Service{
		orders:   orders,
		outbox:   outbox,
		timeline: timeline,
		logger:   logger,
		metrics:  metrics.NewStoreMetrics(),
	}
}

// NewServiceWithKafka создаёт сервис с прямой публикацией событий в Kafka.
func NewServiceWithKafka(
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	kafkaProducer *kafka.Producer,
	logger *log.Entry,
) *Service {
	service := NewService(orders, outbox, timeline, logger)
	service.kafkaProducer = kafkaProducer
	return service
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	orders domain.OrderRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Service {
	service := NewService(orders, outbox, timeline, logger)
	service.metrics = nil
	return service
}

// Change переводит заказ в новый статус.
// tracking/notes — частичные обновления: nil не трогает поле, пустая строка очищает.
func (s *Service) Change(ref domain.OrderRef, next domain.OrderStatus, tracking, notes *string) (domain.Order, error) {
	if !next.Valid() {
		return domain.Order{}, domain.ErrInvalidStatus
	}

	order, err := s.orders.Get(ref)
	if err != nil {
		return domain.Order{}, err
	}

	if !order.Status.CanTransitionTo(next) {
		return domain.Order{}, &domain.InvalidTransitionError{From: order.Status, To: next}
	}

	// Повтор текущего статуса: идемпотентный no-op, если нечего обновлять.
	if order.Status == next && tracking == nil && notes == nil {
		return order, nil
	}
	repeated := order.Status == next

	change := domain.StatusChange{
		Status:         next,
		ExpectedStatus: order.Status,
		TrackingNumber: tracking,
		Notes:          notes,
	}
	switch next {
	case domain.OrderStatusDelivered:
		// delivered_at выставляется один раз; хранилище не перезаписывает его.
		now := time.Now().UTC()
		change.DeliveredAt = &now
	case domain.OrderStatusCancelled:
		// Возврат остатков только при первом входе в cancelled.
		change.Restock = !repeated
	}

	updated, err := s.orders.ApplyStatusChange(order.ID, change)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"status":   next,
		}).Error("status change failed")
		return domain.Order{}, err
	}

	if repeated {
		return updated, nil
	}

	if s.metrics != nil {
		s.metrics.RecordStatusTransition(string(next))
		if next.Terminal() {
			s.metrics.RecordOrderFinished()
		}
	}
	s.logger.WithFields(log.Fields{
		"order_id": updated.ID,
		"from":     order.Status,
		"to":       next,
	}).Info("order status changed")

	eventType := kafka.EventTypeOrderStatusChanged
	if next == domain.OrderStatusCancelled {
		eventType = kafka.EventTypeOrderCancelled
	}
	s.appendTimeline(updated, string(eventType), string(next))
	s.emitEvent(updated, eventType)

	return updated, nil
}

func (s *Service) appendTimeline(order domain.Order, eventType, reason string) {
	if s.timeline == nil {
		return
	}

	event := domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     eventType,
		Reason:   reason,
		Occurred: time.Now().UTC(),
	}
	if err := s.timeline.Append(event); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("append timeline event failed")
	}
}

func (s *Service) emitEvent(order domain.Order, eventType kafka.EventType) {
	if s.outbox != nil {
		payload, err := json.Marshal(kafka.NewOrderEvent(eventType, order))
		if err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Error("marshal order event failed")
			return
		}
		msg := domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   strconv.FormatInt(order.ID, 10),
			EventType:     string(eventType),
			Payload:       payload,
		}
		if _, err := s.outbox.Enqueue(msg); err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Error("enqueue order event failed")
		}
	}

	if s.kafkaProducer != nil {
		event := kafka.NewOrderEvent(eventType, order)
		key := strconv.FormatInt(order.ID, 10)
		if err := s.kafkaProducer.PublishEvent(kafka.TopicOrderEvents, key, event); err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to publish order event to kafka")
		}
	}
}
