package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(product domain.Product) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO products (
			name, price_minor, stock, sold, rating, review_count, inactive,
			image_url, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id
	`,
		product.Name, product.PriceMinor, product.Stock, product.Sold,
		product.Rating, product.ReviewCount, product.Inactive,
		product.ImageURL, product.CreatedAt, product.UpdatedAt,
	).Scan(&product.ID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}

	return product, nil
}

func (r *productRepository) Get(id int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var product domain.Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price_minor, stock, sold, rating, review_count, inactive,
		       image_url, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(
		&product.ID, &product.Name, &product.PriceMinor, &product.Stock, &product.Sold,
		&product.Rating, &product.ReviewCount, &product.Inactive,
		&product.ImageURL, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	return product, nil
}

func (r *productRepository) SetInactive(id int64, inactive bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products SET inactive = $1, updated_at = NOW() WHERE id = $2
	`, inactive, id)
	if err != nil {
		return fmt.Errorf("set product inactive: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inactive rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// RecomputeRating пересчитывает агрегат целиком из набора отзывов одним
// statement. Инкрементальное среднее не используется: при конкурентных
// изменениях отзывов оно расходится с действительностью.
func (r *productRepository) RecomputeRating(productID int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products p
		SET rating = COALESCE(agg.avg_rating, 0),
		    review_count = COALESCE(agg.cnt, 0),
		    updated_at = NOW()
		FROM (
			SELECT ROUND(AVG(rating)::numeric, 1) AS avg_rating, COUNT(*) AS cnt
			FROM reviews
			WHERE product_id = $1
		) agg
		WHERE p.id = $1
	`, productID)
	if err != nil {
		return fmt.Errorf("recompute rating: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rating rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
