package domain

import (
	"math"
	"time"
)

// Review — отзыв покупателя на товар, привязанный к конкретной покупке.
// На одну комбинацию (user, product, order, order_item) допускается не более одного отзыва.
type Review struct {
	ID          int64
	UserID      int64
	ProductID   int64
	OrderID     int64
	OrderItemID int64
	// Rating — целочисленная оценка 1..5.
	Rating int32
	Title  string
	Comment string
	// Recommend трёхзначен: рекомендует / не рекомендует / не ответил.
	Recommend *bool
	// VerifiedPurchase выставляется на прошедшем проверку пути оформления.
	VerifiedPurchase bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ValidateInvariants проверяет базовые инварианты отзыва.
func (r *Review) ValidateInvariants() []error {
	var errs []error

	if r.UserID <= 0 {
		errs = append(errs, ErrUserRequired)
	}
	if r.ProductID <= 0 {
		errs = append(errs, ErrProductNotFound)
	}
	if r.OrderID <= 0 {
		errs = append(errs, ErrOrderNotFound)
	}
	if r.Rating < 1 || r.Rating > 5 {
		errs = append(errs, ErrRatingOutOfRange)
	}

	return errs
}

// EligibilityReason — машиночитаемая причина отказа в праве на отзыв.
type EligibilityReason string

const (
	// EligibilityReasonOrderNotFound — заказ не найден или принадлежит другому пользователю.
	EligibilityReasonOrderNotFound EligibilityReason = "order_not_found"
	// EligibilityReasonNotDelivered — заказ ещё не доставлен.
	EligibilityReasonNotDelivered EligibilityReason = "order_not_delivered"
	// EligibilityReasonProductNotInOrder — товар не входит в заказ.
	EligibilityReasonProductNotInOrder EligibilityReason = "product_not_in_order"
	// EligibilityReasonAlreadyReviewed — отзыв на эту покупку уже существует.
	EligibilityReasonAlreadyReviewed EligibilityReason = "already_reviewed"
)

// Eligibility — результат проверки права на отзыв.
// Проверка фиксирует состояние на момент вызова: последующие смены статуса заказа
// уже оставленные отзывы не отзывают.
type Eligibility struct {
	Eligible bool
	Reason   EligibilityReason
	// OrderItemID — позиция заказа, к которой будет привязан отзыв.
	OrderItemID int64
}

// ReviewStats — агрегаты отзывов товара для витрины.
type ReviewStats struct {
	TotalReviews  int32
	AverageRating float64
	// RatingDistribution — количество отзывов по каждой оценке 1..5.
	RatingDistribution map[int32]int32
	// RecommendationPercent — доля ответивших "рекомендую" среди давших ответ.
	RecommendationPercent float64
}

// RoundRating округляет средний рейтинг до одного знака после запятой.
func RoundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}
