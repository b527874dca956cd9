package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора покупателя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствия хотя бы одной позиции в корзине.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка отсутствующих данных покупателя (адрес/контакты).
	ErrCustomerDetailsRequired = errors.New("customer details are required")
	// Ошибка отсутствующего способа оплаты.
	ErrPaymentMethodRequired = errors.New("payment method is required")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("order amounts must be non-negative")
	// Ошибка несоответствия итоговой суммы и слагаемых.
	ErrTotalsMismatch = errors.New("order total does not match subtotal + shipping + tax")
	// ErrProductNotFound возвращается, если товар отсутствует в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден ни по id, ни по номеру.
	ErrOrderNotFound = errors.New("order not found")
	// ErrReviewNotFound возвращается, если отзыв не найден или принадлежит другому пользователю.
	ErrReviewNotFound = errors.New("review not found")
	// ErrDuplicateReview сигнализирует о повторном отзыве на ту же покупку.
	ErrDuplicateReview = errors.New("review already exists for this purchase")
	// ErrReviewNotEligible возвращается при попытке оставить отзыв без права на него.
	ErrReviewNotEligible = errors.New("review is not eligible for this order")
	// ErrRatingOutOfRange — оценка отзыва вне диапазона 1..5.
	ErrRatingOutOfRange = errors.New("review rating must be between 1 and 5")
	// ErrInvalidStatus — статус заказа вне множества поддерживаемых значений.
	ErrInvalidStatus = errors.New("unknown order status")
	// ErrOrderRefRequired — пустая ссылка на заказ (ни id, ни номера).
	ErrOrderRefRequired = errors.New("order reference is required")
	// ErrStatusConflict — статус заказа изменился между чтением и записью.
	ErrStatusConflict = errors.New("order status changed concurrently")
	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой хеш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyKeyNotFound — запись по ключу отсутствует.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyHashMismatch — тот же ключ пришёл с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different request")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// InsufficientStockError описывает отказ склада: запрошено больше, чем доступно.
// Ошибка всегда означает полный откат транзакции заказа.
type InsufficientStockError struct {
	ProductID int64
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// IsInsufficientStock проверяет, является ли ошибка отказом склада.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

// InvalidTransitionError описывает запрещённый переход статуса заказа.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition: %s -> %s", e.From, e.To)
}

// IsInvalidTransition проверяет, является ли ошибка запрещённым переходом статуса.
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

// IsIdempotencyConflict проверяет, относится ли ошибка к конфликтам idempotency-key.
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyKeyAlreadyExists) || errors.Is(err, ErrIdempotencyHashMismatch)
}
