package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// inventoryLedger — PostgreSQL-реализация складского регистра.
type inventoryLedger struct {
	db *sql.DB
}

// NewInventoryLedger создаёт PostgreSQL-реализацию InventoryLedger.
func NewInventoryLedger(store *Store) domain.InventoryLedger {
	return &inventoryLedger{db: store.DB()}
}

// ReserveAndCommit атомарно проверяет остаток и списывает его одним statement.
func (l *inventoryLedger) ReserveAndCommit(productID int64, qty int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return reserveAndCommit(ctx, l.db, productID, qty)
}

// Restock возвращает позиции на склад.
func (l *inventoryLedger) Restock(productID int64, qty int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return restock(ctx, l.db, productID, qty)
}

// execer покрывает *sql.DB и *sql.Tx: списание выполняется и отдельно,
// и внутри транзакции создания заказа.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// reserveAndCommit — единственное место, где закрывается гонка
// "прочитал-сравнил-записал". Условный UPDATE с проверкой числа затронутых
// строк корректен уже при read committed; раздельные SELECT и UPDATE — нет.
func reserveAndCommit(ctx context.Context, q execer, productID int64, qty int32) error {
	res, err := q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2,
		    sold = sold + $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND stock >= $2
	`, productID, qty)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Ноль строк: либо товара нет, либо остатка не хватает.
	var available int32
	err = q.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("check available stock: %w", err)
	}

	return &domain.InsufficientStockError{
		ProductID: productID,
		Requested: qty,
		Available: available,
	}
}

// restock возвращает остатки; sold не опускается ниже нуля.
func restock(ctx context.Context, q execer, productID int64, qty int32) error {
	res, err := q.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2,
		    sold = GREATEST(sold - $2, 0),
		    updated_at = NOW()
		WHERE id = $1
	`, productID, qty)
	if err != nil {
		return fmt.Errorf("restock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("restock rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

var _ domain.InventoryLedger = (*inventoryLedger)(nil)
