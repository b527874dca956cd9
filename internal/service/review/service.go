package review

import (
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/rating"
)

// Service принимает отзывы через gate подтверждённой покупки и синхронно
// поддерживает агрегат рейтинга товара в актуальном состоянии.
type Service struct {
	reviews       domain.ReviewRepository
	rating        *rating.Updater
	logger        *log.Entry
	metrics       *metrics.StoreMetrics
	kafkaProducer *kafka.Producer
}

// NewService создаёт рабочий экземпляр сервиса отзывов.
func NewService(reviews domain.ReviewRepository, updater *rating.Updater, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "review")
	}
	return &Service{
		reviews: reviews,
		rating:  updater,
		logger:  logger,
		metrics: metrics.NewStoreMetrics(),
	}
}

// NewServiceWithKafka создаёт сервис с публикацией событий отзывов в Kafka.
func NewServiceWithKafka(reviews domain.ReviewRepository, updater *rating.Updater, kafkaProducer *kafka.Producer, logger *log.Entry) *Service {
	service := NewService(reviews, updater, logger)
	service.kafkaProducer = kafkaProducer
	return service
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(reviews domain.ReviewRepository, updater *rating.Updater, logger *log.Entry) *Service {
	service := NewService(reviews, updater, logger)
	service.metrics = nil
	return service
}

// CheckEligibility проверяет право пользователя на отзыв по конкретной покупке.
func (s *Service) CheckEligibility(userID, productID, orderID int64) (domain.Eligibility, error) {
	if userID <= 0 {
		return domain.Eligibility{}, domain.ErrUserRequired
	}
	return s.reviews.Eligibility(userID, productID, orderID)
}

// Submit сохраняет отзыв, прошедший проверку покупки. Проверка повторяется
// внутри транзакции вставки, поэтому verified_purchase на этом пути всегда true.
func (s *Service) Submit(review domain.Review) (domain.Review, error) {
	if errs := review.ValidateInvariants(); len(errs) > 0 {
		s.recordRejection(errs[0])
		return domain.Review{}, errs[0]
	}

	review.VerifiedPurchase = true

	created, err := s.reviews.Create(review)
	if err != nil {
		s.recordRejection(err)
		s.logger.WithError(err).WithFields(log.Fields{
			"user_id":    review.UserID,
			"product_id": review.ProductID,
			"order_id":   review.OrderID,
		}).Warn("review submit rejected")
		return domain.Review{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordReviewCreated()
	}
	s.logger.WithFields(log.Fields{
		"review_id":  created.ID,
		"product_id": created.ProductID,
		"rating":     created.Rating,
	}).Info("review created")

	s.recompute(created.ProductID)
	s.emitEvent(created, kafka.EventTypeReviewCreated)

	return created, nil
}

// Update изменяет отзыв владельца и пересчитывает агрегат товара.
func (s *Service) Update(review domain.Review) (domain.Review, error) {
	if review.Rating < 1 || review.Rating > 5 {
		return domain.Review{}, domain.ErrRatingOutOfRange
	}

	updated, err := s.reviews.Update(review)
	if err != nil {
		return domain.Review{}, err
	}

	s.recompute(updated.ProductID)
	s.emitEvent(updated, kafka.EventTypeReviewUpdated)

	return updated, nil
}

// Delete удаляет отзыв владельца (admin снимает проверку) и пересчитывает агрегат.
func (s *Service) Delete(id, userID int64, admin bool) error {
	deleted, err := s.reviews.Delete(id, userID, admin)
	if err != nil {
		return err
	}

	s.recompute(deleted.ProductID)
	s.emitEvent(deleted, kafka.EventTypeReviewDeleted)

	return nil
}

// ListByProduct возвращает отзывы товара, новые первыми.
func (s *Service) ListByProduct(productID int64, limit int) ([]domain.Review, error) {
	return s.reviews.ListByProduct(productID, limit)
}

// Stats возвращает распределение оценок и долю рекомендаций.
func (s *Service) Stats(productID int64) (domain.ReviewStats, error) {
	return s.reviews.Stats(productID)
}

func (s *Service) recompute(productID int64) {
	if s.rating == nil {
		return
	}
	// Ошибка пересчёта не откатывает мутацию отзыва: агрегат догонит
	// следующее изменение, а сбой уже залогирован внутри Updater.
	_ = s.rating.Recompute(productID)
}

func (s *Service) recordRejection(err error) {
	if s.metrics == nil {
		return
	}

	switch err {
	case domain.ErrDuplicateReview:
		s.metrics.RecordReviewRejected("duplicate")
	case domain.ErrReviewNotEligible:
		s.metrics.RecordReviewRejected("not_eligible")
	default:
		s.metrics.RecordReviewRejected("validation")
	}
}

func (s *Service) emitEvent(review domain.Review, eventType kafka.EventType) {
	if s.kafkaProducer == nil {
		return
	}

	event := kafka.NewReviewEvent(eventType, review)
	key := strconv.FormatInt(review.ProductID, 10)
	if err := s.kafkaProducer.PublishEvent(kafka.TopicReviewEvents, key, event); err != nil {
		s.logger.WithError(err).WithField("review_id", review.ID).Warn("failed to publish review event to kafka")
	}
}
