package rating

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// Updater пересчитывает агрегат рейтинга товара после каждой мутации отзывов.
// Пересчёт всегда полный: rating и review_count выводятся заново из набора
// отзывов, инкрементальные поправки не применяются.
type Updater struct {
	products domain.ProductRepository
	logger   *log.Entry
	metrics  *metrics.StoreMetrics
}

// NewUpdater создаёт рабочий экземпляр.
func NewUpdater(products domain.ProductRepository, logger *log.Entry) *Updater {
	if logger == nil {
		logger = log.New().WithField("component", "rating-updater")
	}
	return &Updater{
		products: products,
		logger:   logger,
		metrics:  metrics.NewStoreMetrics(),
	}
}

// NewUpdaterWithoutMetrics создаёт экземпляр без метрик (для тестов).
func NewUpdaterWithoutMetrics(products domain.ProductRepository, logger *log.Entry) *Updater {
	updater := NewUpdater(products, logger)
	updater.metrics = nil
	return updater
}

// Recompute полностью пересчитывает rating/review_count товара.
func (u *Updater) Recompute(productID int64) error {
	if err := u.products.RecomputeRating(productID); err != nil {
		u.logger.WithError(err).WithField("product_id", productID).Error("rating recompute failed")
		return err
	}

	if u.metrics != nil {
		u.metrics.RecordRatingRecompute()
	}
	u.logger.WithField("product_id", productID).Debug("rating recomputed")
	return nil
}
