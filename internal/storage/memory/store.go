package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Store — общее in-memory состояние каталога, заказов и отзывов.
// В отличие от независимых map-хранилищ, единый мьютекс нужен, чтобы
// кросс-сущностные операции (заказ + позиции + списание остатков) были
// атомарными так же, как транзакция в PostgreSQL.
type Store struct {
	mu sync.RWMutex

	products map[int64]domain.Product
	orders   map[int64]domain.Order
	reviews  map[int64]domain.Review

	productSeq int64
	orderSeq   int64
	itemSeq    int64
	reviewSeq  int64
}

// NewStore создаёт пустое in-memory хранилище для разработки и тестов.
func NewStore() *Store {
	return &Store{
		products: make(map[int64]domain.Product),
		orders:   make(map[int64]domain.Order),
		reviews:  make(map[int64]domain.Review),
	}
}

// nextProductID выдаёт следующий id товара. Вызывать под mu.
func (s *Store) nextProductID() int64 {
	s.productSeq++
	return s.productSeq
}

// nextOrderID выдаёт следующий id заказа. Вызывать под mu.
func (s *Store) nextOrderID() int64 {
	s.orderSeq++
	return s.orderSeq
}

// nextItemID выдаёт следующий id позиции. Вызывать под mu.
func (s *Store) nextItemID() int64 {
	s.itemSeq++
	return s.itemSeq
}

// nextReviewID выдаёт следующий id отзыва. Вызывать под mu.
func (s *Store) nextReviewID() int64 {
	s.reviewSeq++
	return s.reviewSeq
}

// cloneOrder копирует заказ вместе с позициями, чтобы избежать мутаций извне.
func cloneOrder(src domain.Order) domain.Order {
	dst := src
	dst.Items = append([]domain.OrderItem(nil), src.Items...)
	if src.DeliveredAt != nil {
		t := *src.DeliveredAt
		dst.DeliveredAt = &t
	}
	return dst
}

// cloneReview копирует отзыв, включая трёхзначный Recommend.
func cloneReview(src domain.Review) domain.Review {
	dst := src
	if src.Recommend != nil {
		v := *src.Recommend
		dst.Recommend = &v
	}
	return dst
}
