package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Create выполняет весь приём заказа одной транзакцией: строка заказа, номер из
// присвоенного id, позиции и списание остатков. Любая ошибка на любом шаге
// откатывает транзакцию целиком — частично созданный заказ снаружи не наблюдаем.
func (r *orderRepository) Create(order domain.Order) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	customerJSON, err := json.Marshal(order.Customer)
	if err != nil {
		return domain.Order{}, fmt.Errorf("marshal customer details: %w", err)
	}
	paymentJSON, err := json.Marshal(order.Payment)
	if err != nil {
		return domain.Order{}, fmt.Errorf("marshal payment details: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Проверяем существование всех товаров до каких-либо записей.
	for _, item := range order.Items {
		var exists int64
		err = tx.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1`, item.ProductID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrProductNotFound
			return domain.Order{}, err
		}
		if err != nil {
			return domain.Order{}, fmt.Errorf("check product %d: %w", item.ProductID, err)
		}
	}

	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			user_id, subtotal_minor, shipping_minor, tax_minor, total_minor,
			status, customer_details, payment_details, estimated_delivery,
			tracking_number, notes, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id
	`,
		order.UserID, order.SubtotalMinor, order.ShippingMinor, order.TaxMinor, order.TotalMinor,
		string(order.Status), customerJSON, paymentJSON, order.EstimatedDelivery,
		order.TrackingNumber, order.Notes, order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	// Номер финализируется из присвоенного id до коммита: заказ с
	// номером-заглушкой снаружи никогда не виден.
	order.Number = domain.FormatOrderNumber(order.CreatedAt.Year(), order.ID)
	if _, err = tx.ExecContext(ctx, `
		UPDATE orders SET order_number = $1 WHERE id = $2
	`, order.Number, order.ID); err != nil {
		return domain.Order{}, fmt.Errorf("assign order number: %w", err)
	}

	items := make([]domain.OrderItem, len(order.Items))
	copy(items, order.Items)
	for i := range items {
		items[i].OrderID = order.ID
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = order.CreatedAt
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (
				order_id, product_id, product_name, product_image, qty, price_minor, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING id
		`,
			items[i].OrderID, items[i].ProductID, items[i].ProductName,
			items[i].ProductImage, items[i].Qty, items[i].PriceMinor, items[i].CreatedAt,
		).Scan(&items[i].ID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("insert order item: %w", err)
		}

		if err = reserveAndCommit(ctx, tx, items[i].ProductID, items[i].Qty); err != nil {
			return domain.Order{}, err
		}
	}
	order.Items = items

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit create order: %w", err)
	}

	return order, nil
}

// Get разрешает ссылку по id или номеру и возвращает заказ с позициями.
func (r *orderRepository) Get(ref domain.OrderRef) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return r.get(ctx, r.db, ref)
}

func (r *orderRepository) get(ctx context.Context, q querier, ref domain.OrderRef) (domain.Order, error) {
	if ref.IsZero() {
		return domain.Order{}, domain.ErrOrderRefRequired
	}

	query := `
		SELECT id, order_number, user_id, subtotal_minor, shipping_minor, tax_minor,
		       total_minor, status, customer_details, payment_details,
		       estimated_delivery, delivered_at, tracking_number, notes,
		       created_at, updated_at
		FROM orders
	`
	var row *sql.Row
	if ref.ID > 0 {
		row = q.QueryRowContext(ctx, query+` WHERE id = $1`, ref.ID)
	} else {
		row = q.QueryRowContext(ctx, query+` WHERE order_number = $1`, ref.Number)
	}

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := loadItems(ctx, q, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Items = items

	return order, nil
}

// ListByUser возвращает заказы покупателя с позициями, новые первыми.
func (r *orderRepository) ListByUser(userID int64, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, order_number, user_id, subtotal_minor, shipping_minor, tax_minor,
		       total_minor, status, customer_details, payment_details,
		       estimated_delivery, delivered_at, tracking_number, notes,
		       created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", userID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		items, err := loadItems(ctx, r.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

// ApplyStatusChange применяет переход статуса одной транзакцией, включая
// однократную установку delivered_at, частичные обновления tracking/notes
// и возврат остатков при отмене.
func (r *orderRepository) ApplyStatusChange(orderID int64, change domain.StatusChange) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// COALESCE реализует partial-update семантику: NULL-аргумент оставляет поле
	// нетронутым, непустой аргумент (в том числе пустая строка) перезаписывает.
	// Предикат по статусу — optimistic lock: переход применяется только из того
	// статуса, из которого он валидировался.
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    delivered_at = CASE
		        WHEN $2::timestamptz IS NOT NULL THEN COALESCE(delivered_at, $2)
		        ELSE delivered_at
		    END,
		    tracking_number = COALESCE($3, tracking_number),
		    notes = COALESCE($4, notes),
		    updated_at = $5
		WHERE id = $6 AND status = $7
	`,
		string(change.Status),
		change.DeliveredAt,
		change.TrackingNumber,
		change.Notes,
		time.Now().UTC(),
		orderID,
		string(change.ExpectedStatus),
	)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Order{}, fmt.Errorf("status rows affected: %w", err)
	}
	if affected == 0 {
		// Ноль строк: либо заказа нет, либо параллельный переход успел раньше.
		var exists bool
		if err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID,
		).Scan(&exists); err != nil {
			return domain.Order{}, fmt.Errorf("check order existence: %w", err)
		}
		if !exists {
			err = domain.ErrOrderNotFound
		} else {
			err = domain.ErrStatusConflict
		}
		return domain.Order{}, err
	}

	if change.Restock {
		var items []domain.OrderItem
		items, err = loadItems(ctx, tx, orderID)
		if err != nil {
			return domain.Order{}, err
		}
		for _, item := range items {
			if err = restock(ctx, tx, item.ProductID, item.Qty); err != nil {
				// Товар могли удалить из каталога; возврат остатка тогда невозможен.
				if errors.Is(err, domain.ErrProductNotFound) {
					err = nil
					continue
				}
				return domain.Order{}, err
			}
		}
	}

	var order domain.Order
	order, err = r.get(ctx, tx, domain.OrderRef{ID: orderID})
	if err != nil {
		return domain.Order{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit status change: %w", err)
	}

	return order, nil
}

// querier покрывает *sql.DB и *sql.Tx для читающих запросов.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rowScanner объединяет *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order        domain.Order
		status       string
		customerJSON []byte
		paymentJSON  []byte
		estimated    sql.NullTime
		delivered    sql.NullTime
	)

	if err := row.Scan(
		&order.ID, &order.Number, &order.UserID,
		&order.SubtotalMinor, &order.ShippingMinor, &order.TaxMinor, &order.TotalMinor,
		&status, &customerJSON, &paymentJSON,
		&estimated, &delivered, &order.TrackingNumber, &order.Notes,
		&order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatus(status)
	if estimated.Valid {
		order.EstimatedDelivery = estimated.Time
	}
	if delivered.Valid {
		t := delivered.Time
		order.DeliveredAt = &t
	}
	if err := json.Unmarshal(customerJSON, &order.Customer); err != nil {
		return domain.Order{}, fmt.Errorf("unmarshal customer details: %w", err)
	}
	if err := json.Unmarshal(paymentJSON, &order.Payment); err != nil {
		return domain.Order{}, fmt.Errorf("unmarshal payment details: %w", err)
	}

	return order, nil
}

func loadItems(ctx context.Context, q querier, orderID int64) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, product_image, qty, price_minor, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.ProductImage, &item.Qty, &item.PriceMinor, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
