package memory

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// productRepositoryInMemory — in-memory реализация ProductRepository поверх Store.
type productRepositoryInMemory struct {
	store *Store
}

// NewProductRepository возвращает in-memory репозиторий каталога.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepositoryInMemory{store: store}
}

// Create сохраняет товар и присваивает ему id.
func (r *productRepositoryInMemory) Create(product domain.Product) (domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()
	product.ID = r.store.nextProductID()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	r.store.products[product.ID] = product
	return product, nil
}

// Get возвращает товар или ErrProductNotFound.
func (r *productRepositoryInMemory) Get(id int64) (domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	product, ok := r.store.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// SetInactive переключает операторский флаг "снят с продажи".
func (r *productRepositoryInMemory) SetInactive(id int64, inactive bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	product, ok := r.store.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.Inactive = inactive
	product.UpdatedAt = time.Now().UTC()
	r.store.products[id] = product
	return nil
}

// RecomputeRating полностью пересчитывает rating/review_count из набора отзывов.
func (r *productRepositoryInMemory) RecomputeRating(productID int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	product, ok := r.store.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}

	var sum int64
	var count int32
	for _, review := range r.store.reviews {
		if review.ProductID != productID {
			continue
		}
		sum += int64(review.Rating)
		count++
	}

	if count == 0 {
		product.Rating = 0
		product.ReviewCount = 0
	} else {
		product.Rating = domain.RoundRating(float64(sum) / float64(count))
		product.ReviewCount = count
	}
	product.UpdatedAt = time.Now().UTC()
	r.store.products[productID] = product
	return nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
