package memory

import (
	"sort"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository поверх Store.
type orderRepositoryInMemory struct {
	store *Store
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepositoryInMemory{store: store}
}

// Create атомарно сохраняет заказ, позиции и списание остатков.
// Все изменения готовятся на копиях и применяются только после того, как
// прошла каждая позиция; любая ошибка оставляет хранилище нетронутым.
func (r *orderRepositoryInMemory) Create(order domain.Order) (domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	// Сначала проверяем существование всех товаров: отказ до каких-либо записей.
	for _, item := range order.Items {
		if _, ok := r.store.products[item.ProductID]; !ok {
			return domain.Order{}, domain.ErrProductNotFound
		}
	}

	// Списываем остатки на копиях, фиксация — только после успеха всех строк.
	staged := make(map[int64]domain.Product, len(order.Items))
	for _, item := range order.Items {
		product, ok := staged[item.ProductID]
		if !ok {
			product = r.store.products[item.ProductID]
		}
		if product.Stock < item.Qty {
			return domain.Order{}, &domain.InsufficientStockError{
				ProductID: item.ProductID,
				Requested: item.Qty,
				Available: product.Stock,
			}
		}
		product.Stock -= item.Qty
		product.Sold += item.Qty
		staged[item.ProductID] = product
	}

	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	order.ID = r.store.nextOrderID()
	// Номер форматируется из присвоенного id в той же "транзакции":
	// заказ с номером-заглушкой снаружи не наблюдаем.
	order.Number = domain.FormatOrderNumber(order.CreatedAt.Year(), order.ID)

	items := make([]domain.OrderItem, len(order.Items))
	copy(items, order.Items)
	for i := range items {
		items[i].ID = r.store.nextItemID()
		items[i].OrderID = order.ID
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = order.CreatedAt
		}
	}
	order.Items = items

	for id, product := range staged {
		product.UpdatedAt = now
		r.store.products[id] = product
	}
	r.store.orders[order.ID] = cloneOrder(order)

	return order, nil
}

// Get разрешает ссылку по id или номеру и возвращает заказ с позициями.
func (r *orderRepositoryInMemory) Get(ref domain.OrderRef) (domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	order, ok := r.lookupLocked(ref)
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ListByUser возвращает заказы покупателя, новые первыми.
func (r *orderRepositoryInMemory) ListByUser(userID int64, limit int) ([]domain.Order, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.store.orders))
	for _, order := range r.store.orders {
		if order.UserID != userID {
			continue
		}
		result = append(result, cloneOrder(order))
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

// ApplyStatusChange применяет переход статуса одним атомарным шагом.
func (r *orderRepositoryInMemory) ApplyStatusChange(orderID int64, change domain.StatusChange) (domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	order, ok := r.store.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	// Optimistic lock: между чтением в сервисе и записью статус мог смениться.
	if order.Status != change.ExpectedStatus {
		return domain.Order{}, domain.ErrStatusConflict
	}

	order.Status = change.Status
	// delivered_at выставляется один раз и дальнейшими переходами не очищается.
	if change.DeliveredAt != nil && order.DeliveredAt == nil {
		t := *change.DeliveredAt
		order.DeliveredAt = &t
	}
	if change.TrackingNumber != nil {
		order.TrackingNumber = *change.TrackingNumber
	}
	if change.Notes != nil {
		order.Notes = *change.Notes
	}

	if change.Restock {
		for _, item := range order.Items {
			// Товар могли удалить из каталога; возврат остатка тогда невозможен.
			if _, ok := r.store.products[item.ProductID]; !ok {
				continue
			}
			_ = restockLocked(r.store, item.ProductID, item.Qty)
		}
	}

	order.UpdatedAt = time.Now().UTC()
	r.store.orders[orderID] = cloneOrder(order)
	return cloneOrder(order), nil
}

// lookupLocked ищет заказ по id либо по номеру. Вызывать под mu.
func (r *orderRepositoryInMemory) lookupLocked(ref domain.OrderRef) (domain.Order, bool) {
	if ref.ID > 0 {
		order, ok := r.store.orders[ref.ID]
		return order, ok
	}
	for _, order := range r.store.orders {
		if order.Number == ref.Number {
			return order, true
		}
	}
	return domain.Order{}, false
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
