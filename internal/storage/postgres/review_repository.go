package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository создаёт PostgreSQL-реализацию ReviewRepository.
func NewReviewRepository(store *Store) domain.ReviewRepository {
	return &reviewRepository{db: store.DB()}
}

// Create сохраняет отзыв, повторно проверяя право на отзыв в той же транзакции,
// что и вставка. Уникальный индекс по покупке страхует от гонки двух
// одновременных вставок: проигравшая получает ErrDuplicateReview.
func (r *reviewRepository) Create(review domain.Review) (domain.Review, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Review{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var elig domain.Eligibility
	elig, err = eligibility(ctx, tx, review.UserID, review.ProductID, review.OrderID)
	if err != nil {
		return domain.Review{}, err
	}
	if !elig.Eligible {
		if elig.Reason == domain.EligibilityReasonAlreadyReviewed {
			err = domain.ErrDuplicateReview
		} else {
			err = domain.ErrReviewNotEligible
		}
		return domain.Review{}, err
	}
	review.OrderItemID = elig.OrderItemID

	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = review.CreatedAt

	err = tx.QueryRowContext(ctx, `
		INSERT INTO reviews (
			user_id, product_id, order_id, order_item_id, rating, title, comment,
			recommend, verified_purchase, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id
	`,
		review.UserID, review.ProductID, review.OrderID, review.OrderItemID,
		review.Rating, review.Title, review.Comment,
		review.Recommend, review.VerifiedPurchase, review.CreatedAt, review.UpdatedAt,
	).Scan(&review.ID)
	if err != nil {
		if isUniqueViolation(err) {
			err = domain.ErrDuplicateReview
			return domain.Review{}, err
		}
		return domain.Review{}, fmt.Errorf("insert review: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Review{}, fmt.Errorf("commit create review: %w", err)
	}

	return review, nil
}

func (r *reviewRepository) Get(id int64) (domain.Review, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	review, err := scanReview(r.db.QueryRowContext(ctx, selectReview+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Review{}, domain.ErrReviewNotFound
		}
		return domain.Review{}, fmt.Errorf("select review: %w", err)
	}
	return review, nil
}

// Update изменяет отзыв владельца. Фильтр по user_id делает чужой отзыв
// неотличимым от отсутствующего.
func (r *reviewRepository) Update(review domain.Review) (domain.Review, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	review.UpdatedAt = time.Now().UTC()

	err := r.db.QueryRowContext(ctx, `
		UPDATE reviews
		SET rating = $1, title = $2, comment = $3, recommend = $4, updated_at = $5
		WHERE id = $6 AND user_id = $7
		RETURNING product_id, order_id, order_item_id, verified_purchase, created_at
	`,
		review.Rating, review.Title, review.Comment, review.Recommend, review.UpdatedAt,
		review.ID, review.UserID,
	).Scan(&review.ProductID, &review.OrderID, &review.OrderItemID, &review.VerifiedPurchase, &review.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Review{}, domain.ErrReviewNotFound
		}
		return domain.Review{}, fmt.Errorf("update review: %w", err)
	}

	return review, nil
}

// Delete удаляет отзыв владельца; admin снимает проверку владельца.
// Возвращает удалённый отзыв, чтобы вызывающая сторона знала product_id
// для пересчёта агрегата.
func (r *reviewRepository) Delete(id, userID int64, admin bool) (domain.Review, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		DELETE FROM reviews
		WHERE id = $1 AND (user_id = $2 OR $3)
		RETURNING id, user_id, product_id, order_id, order_item_id, rating, title,
		          comment, recommend, verified_purchase, created_at, updated_at
	`
	review, err := scanReview(r.db.QueryRowContext(ctx, query, id, userID, admin))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Review{}, domain.ErrReviewNotFound
		}
		return domain.Review{}, fmt.Errorf("delete review: %w", err)
	}

	return review, nil
}

func (r *reviewRepository) ListByProduct(productID int64, limit int) ([]domain.Review, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := selectReview + `
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", productID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

func (r *reviewRepository) Eligibility(userID, productID, orderID int64) (domain.Eligibility, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return eligibility(ctx, r.db, userID, productID, orderID)
}

// eligibility проверяет цепочку условий права на отзыв в фиксированном порядке:
// заказ существует и принадлежит пользователю, заказ доставлен, товар входит
// в заказ, отзыв ещё не оставлен. Чужой заказ сообщается как отсутствующий.
func eligibility(ctx context.Context, q querier, userID, productID, orderID int64) (domain.Eligibility, error) {
	var status string
	err := q.QueryRowContext(ctx, `
		SELECT status FROM orders WHERE id = $1 AND user_id = $2
	`, orderID, userID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Eligibility{Reason: domain.EligibilityReasonOrderNotFound}, nil
	}
	if err != nil {
		return domain.Eligibility{}, fmt.Errorf("check order: %w", err)
	}
	if domain.OrderStatus(status) != domain.OrderStatusDelivered {
		return domain.Eligibility{Reason: domain.EligibilityReasonNotDelivered}, nil
	}

	var orderItemID int64
	err = q.QueryRowContext(ctx, `
		SELECT id FROM order_items
		WHERE order_id = $1 AND product_id = $2
		ORDER BY id ASC
		LIMIT 1
	`, orderID, productID).Scan(&orderItemID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Eligibility{Reason: domain.EligibilityReasonProductNotInOrder}, nil
	}
	if err != nil {
		return domain.Eligibility{}, fmt.Errorf("check order item: %w", err)
	}

	var reviewed bool
	err = q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reviews
			WHERE user_id = $1 AND product_id = $2 AND order_id = $3 AND order_item_id = $4
		)
	`, userID, productID, orderID, orderItemID).Scan(&reviewed)
	if err != nil {
		return domain.Eligibility{}, fmt.Errorf("check existing review: %w", err)
	}
	if reviewed {
		return domain.Eligibility{Reason: domain.EligibilityReasonAlreadyReviewed}, nil
	}

	return domain.Eligibility{Eligible: true, OrderItemID: orderItemID}, nil
}

// Stats считает распределение оценок одним запросом через FILTER-агрегаты.
// Доля рекомендаций берётся только среди ответивших на вопрос.
func (r *reviewRepository) Stats(productID int64) (domain.ReviewStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		stats       domain.ReviewStats
		avg         sql.NullFloat64
		counts      [5]int32
		recommended int32
		responded   int32
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       AVG(rating),
		       COUNT(*) FILTER (WHERE rating = 1),
		       COUNT(*) FILTER (WHERE rating = 2),
		       COUNT(*) FILTER (WHERE rating = 3),
		       COUNT(*) FILTER (WHERE rating = 4),
		       COUNT(*) FILTER (WHERE rating = 5),
		       COUNT(*) FILTER (WHERE recommend),
		       COUNT(recommend)
		FROM reviews
		WHERE product_id = $1
	`, productID).Scan(
		&stats.TotalReviews, &avg,
		&counts[0], &counts[1], &counts[2], &counts[3], &counts[4],
		&recommended, &responded,
	)
	if err != nil {
		return domain.ReviewStats{}, fmt.Errorf("select review stats: %w", err)
	}

	if avg.Valid {
		stats.AverageRating = domain.RoundRating(avg.Float64)
	}
	stats.RatingDistribution = make(map[int32]int32, 5)
	for i, c := range counts {
		stats.RatingDistribution[int32(i+1)] = c
	}
	if responded > 0 {
		stats.RecommendationPercent = domain.RoundRating(float64(recommended) / float64(responded) * 100)
	}

	return stats, nil
}

const selectReview = `
	SELECT id, user_id, product_id, order_id, order_item_id, rating, title,
	       comment, recommend, verified_purchase, created_at, updated_at
	FROM reviews
`

func scanReview(row rowScanner) (domain.Review, error) {
	var (
		review    domain.Review
		recommend sql.NullBool
	)
	if err := row.Scan(
		&review.ID, &review.UserID, &review.ProductID, &review.OrderID, &review.OrderItemID,
		&review.Rating, &review.Title, &review.Comment,
		&recommend, &review.VerifiedPurchase, &review.CreatedAt, &review.UpdatedAt,
	); err != nil {
		return domain.Review{}, err
	}
	if recommend.Valid {
		b := recommend.Bool
		review.Recommend = &b
	}
	return review, nil
}

var _ domain.ReviewRepository = (*reviewRepository)(nil)
