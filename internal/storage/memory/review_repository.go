package memory

import (
	"sort"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// reviewRepositoryInMemory — in-memory реализация ReviewRepository поверх Store.
type reviewRepositoryInMemory struct {
	store *Store
}

// NewReviewRepository возвращает in-memory репозиторий отзывов.
func NewReviewRepository(store *Store) domain.ReviewRepository {
	return &reviewRepositoryInMemory{store: store}
}

// Create сохраняет отзыв, повторно проверяя право на отзыв под тем же мьютексом,
// что и вставка: гонка между проверкой и записью при параллельных дублях закрыта.
func (r *reviewRepositoryInMemory) Create(review domain.Review) (domain.Review, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	eligibility := r.eligibilityLocked(review.UserID, review.ProductID, review.OrderID)
	if !eligibility.Eligible {
		if eligibility.Reason == domain.EligibilityReasonAlreadyReviewed {
			return domain.Review{}, domain.ErrDuplicateReview
		}
		return domain.Review{}, domain.ErrReviewNotEligible
	}

	now := time.Now().UTC()
	review.ID = r.store.nextReviewID()
	review.OrderItemID = eligibility.OrderItemID
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = review.CreatedAt

	r.store.reviews[review.ID] = cloneReview(review)
	return review, nil
}

// Get возвращает отзыв по id или ErrReviewNotFound.
func (r *reviewRepositoryInMemory) Get(id int64) (domain.Review, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	review, ok := r.store.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrReviewNotFound
	}
	return cloneReview(review), nil
}

// Update изменяет отзыв владельца; чужой отзыв неотличим от отсутствующего.
func (r *reviewRepositoryInMemory) Update(review domain.Review) (domain.Review, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.reviews[review.ID]
	if !ok || current.UserID != review.UserID {
		return domain.Review{}, domain.ErrReviewNotFound
	}

	current.Rating = review.Rating
	current.Title = review.Title
	current.Comment = review.Comment
	current.Recommend = review.Recommend
	current.UpdatedAt = time.Now().UTC()

	r.store.reviews[review.ID] = cloneReview(current)
	return cloneReview(current), nil
}

// Delete удаляет отзыв владельца; admin снимает проверку владельца.
func (r *reviewRepositoryInMemory) Delete(id, userID int64, admin bool) (domain.Review, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	review, ok := r.store.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrReviewNotFound
	}
	if !admin && review.UserID != userID {
		return domain.Review{}, domain.ErrReviewNotFound
	}

	delete(r.store.reviews, id)
	return cloneReview(review), nil
}

// ListByProduct возвращает отзывы товара, новые первыми.
func (r *reviewRepositoryInMemory) ListByProduct(productID int64, limit int) ([]domain.Review, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Review, 0)
	for _, review := range r.store.reviews {
		if review.ProductID != productID {
			continue
		}
		result = append(result, cloneReview(review))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Eligibility проверяет право пользователя на отзыв по данной покупке.
func (r *reviewRepositoryInMemory) Eligibility(userID, productID, orderID int64) (domain.Eligibility, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.eligibilityLocked(userID, productID, orderID), nil
}

// Stats считает распределение оценок и долю рекомендаций.
func (r *reviewRepositoryInMemory) Stats(productID int64) (domain.ReviewStats, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stats := domain.ReviewStats{
		RatingDistribution: map[int32]int32{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	var sum int64
	var recommendYes, recommendTotal int32
	for _, review := range r.store.reviews {
		if review.ProductID != productID {
			continue
		}
		stats.TotalReviews++
		sum += int64(review.Rating)
		stats.RatingDistribution[review.Rating]++
		if review.Recommend != nil {
			recommendTotal++
			if *review.Recommend {
				recommendYes++
			}
		}
	}

	if stats.TotalReviews > 0 {
		stats.AverageRating = domain.RoundRating(float64(sum) / float64(stats.TotalReviews))
	}
	if recommendTotal > 0 {
		stats.RecommendationPercent = domain.RoundRating(float64(recommendYes) / float64(recommendTotal) * 100)
	}

	return stats, nil
}

// eligibilityLocked реализует правило допуска. Вызывать под mu.
func (r *reviewRepositoryInMemory) eligibilityLocked(userID, productID, orderID int64) domain.Eligibility {
	order, ok := r.store.orders[orderID]
	if !ok || order.UserID != userID {
		return domain.Eligibility{Reason: domain.EligibilityReasonOrderNotFound}
	}
	if order.Status != domain.OrderStatusDelivered {
		return domain.Eligibility{Reason: domain.EligibilityReasonNotDelivered}
	}

	var orderItemID int64
	for _, item := range order.Items {
		if item.ProductID == productID {
			orderItemID = item.ID
			break
		}
	}
	if orderItemID == 0 {
		return domain.Eligibility{Reason: domain.EligibilityReasonProductNotInOrder}
	}

	for _, review := range r.store.reviews {
		if review.UserID == userID && review.ProductID == productID &&
			review.OrderID == orderID && review.OrderItemID == orderItemID {
			return domain.Eligibility{Reason: domain.EligibilityReasonAlreadyReviewed}
		}
	}

	return domain.Eligibility{Eligible: true, OrderItemID: orderItemID}
}

var _ domain.ReviewRepository = (*reviewRepositoryInMemory)(nil)
