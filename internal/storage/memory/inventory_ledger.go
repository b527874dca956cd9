package memory

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// inventoryLedgerInMemory — складской регистр поверх общего Store.
// Мьютекс хранилища закрывает классическую гонку "проверил-потом-списал".
type inventoryLedgerInMemory struct {
	store *Store
}

// NewInventoryLedger возвращает in-memory реализацию InventoryLedger.
func NewInventoryLedger(store *Store) domain.InventoryLedger {
	return &inventoryLedgerInMemory{store: store}
}

// ReserveAndCommit атомарно проверяет остаток и списывает его.
func (l *inventoryLedgerInMemory) ReserveAndCommit(productID int64, qty int32) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return reserveLocked(l.store, productID, qty)
}

// Restock возвращает позиции на склад.
func (l *inventoryLedgerInMemory) Restock(productID int64, qty int32) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return restockLocked(l.store, productID, qty)
}

// reserveLocked выполняет списание под уже взятым мьютексом хранилища,
// чтобы репозиторий заказов мог вызывать его внутри своей "транзакции".
func reserveLocked(s *Store, productID int64, qty int32) error {
	product, ok := s.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if product.Stock < qty {
		return &domain.InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: product.Stock,
		}
	}
	product.Stock -= qty
	product.Sold += qty
	product.UpdatedAt = time.Now().UTC()
	s.products[productID] = product
	return nil
}

// restockLocked возвращает остатки под уже взятым мьютексом хранилища.
func restockLocked(s *Store, productID int64, qty int32) error {
	product, ok := s.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.Stock += qty
	if product.Sold >= qty {
		product.Sold -= qty
	} else {
		product.Sold = 0
	}
	product.UpdatedAt = time.Now().UTC()
	s.products[productID] = product
	return nil
}

var _ domain.InventoryLedger = (*inventoryLedgerInMemory)(nil)
