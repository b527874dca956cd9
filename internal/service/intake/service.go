package intake

import (
	"encoding/json"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// ItemInput — позиция корзины на входе оформления.
type ItemInput struct {
	ProductID int64
	Qty       int32
}

// PlaceOrderInput — запрос на оформление заказа.
// Суммы приходят от клиента и сверяются только между собой: снапшоты цен
// позиций берутся из каталога в момент оформления.
type PlaceOrderInput struct {
	UserID        int64
	Items         []ItemInput
	SubtotalMinor int64
	ShippingMinor int64
	TaxMinor      int64
	TotalMinor    int64
	Customer      domain.CustomerDetails
	Payment       domain.PaymentDetails
	Notes         string
}

// Service оформляет заказы: валидация, атомарная запись и побочные эффекты
// (timeline, outbox, Kafka, метрики).
type Service struct {
	orders        domain.OrderRepository
	products      domain.ProductRepository
	outbox        domain.OutboxRepository
	timeline      domain.TimelineRepository
	logger        *log.Entry
	metrics       *metrics.StoreMetrics
	kafkaProducer *kafka.Producer // опциональный прямой publish помимо outbox
}

// NewService создаёт рабочий экземпляр сервиса оформления.
func NewService(
	orders domain.OrderRepository,
	products domain.ProductRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "intake")
	}
	return &Service{
		orders:   orders,
		products: products,
		outbox:   outbox,
		timeline: timeline,
		logger:   logger,
		metrics:  metrics.NewStoreMetrics(),
	}
}

// NewServiceWithKafka создаёт сервис с прямой публикацией событий в Kafka.
func NewServiceWithKafka(
	orders domain.OrderRepository,
	products domain.ProductRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	kafkaProducer *kafka.Producer,
	logger *log.Entry,
) *Service {
	service := NewService(orders, products, outbox, timeline, logger)
	service.kafkaProducer = kafkaProducer
	return service
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	orders domain.OrderRepository,
	products domain.ProductRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Service {
	service := NewService(orders, products, outbox, timeline, logger)
	service.metrics = nil
	return service
}

// PlaceOrder проводит заказ через единственную атомарную запись.
// При любой ошибке хранилища частичных эффектов не остаётся.
func (s *Service) PlaceOrder(input PlaceOrderInput) (domain.Order, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordIntakeDuration(time.Since(start))
		}
	}()

	order, err := s.buildOrder(input)
	if err != nil {
		s.recordRejection(err)
		return domain.Order{}, err
	}

	created, err := s.orders.Create(order)
	if err != nil {
		s.recordRejection(err)
		s.logger.WithError(err).WithField("user_id", input.UserID).Warn("order intake rejected")
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderPlaced()
	}
	s.logger.WithFields(log.Fields{
		"order_id":     created.ID,
		"order_number": created.Number,
		"user_id":      created.UserID,
		"total_minor":  created.TotalMinor,
	}).Info("order placed")

	s.appendTimeline(created, "order.placed", "")
	s.emitEvent(created, kafka.EventTypeOrderCreated)

	return created, nil
}

// buildOrder валидирует вход и собирает заказ со снапшотами карточек товаров.
func (s *Service) buildOrder(input PlaceOrderInput) (domain.Order, error) {
	order := domain.Order{
		UserID:            input.UserID,
		SubtotalMinor:     input.SubtotalMinor,
		ShippingMinor:     input.ShippingMinor,
		TaxMinor:          input.TaxMinor,
		TotalMinor:        input.TotalMinor,
		Status:            domain.OrderStatusPending,
		Customer:          input.Customer,
		Payment:           input.Payment,
		Notes:             input.Notes,
		EstimatedDelivery: time.Now().UTC().Add(domain.EstimatedDeliveryLead),
	}

	for _, item := range input.Items {
		if item.Qty <= 0 {
			return domain.Order{}, domain.ErrItemQtyInvalid
		}

		product, err := s.products.Get(item.ProductID)
		if err != nil {
			return domain.Order{}, err
		}

		order.Items = append(order.Items, domain.OrderItem{
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductImage: product.ImageURL,
			Qty:          item.Qty,
			PriceMinor:   product.PriceMinor,
		})
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errs[0]
	}

	return order, nil
}

func (s *Service) recordRejection(err error) {
	if s.metrics == nil {
		return
	}

	switch {
	case domain.IsInsufficientStock(err):
		s.metrics.RecordOrderRejected("insufficient_stock")
	case err == domain.ErrProductNotFound:
		s.metrics.RecordOrderRejected("product_not_found")
	default:
		s.metrics.RecordOrderRejected("validation")
	}
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
			// Kafka опциональна: основная доставка идёт через outbox worker.
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to publish order event to kafka")
		}
	}
}
