package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OrderStatus описывает жизненный цикл заказа в витрине.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан и ожидает обработки.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing — заказ собирается на складе.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ получен покупателем; терминальный статус.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён до доставки; терминальный статус.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// EstimatedDeliveryLead — срок доставки, который обещаем покупателю при оформлении.
const EstimatedDeliveryLead = 5 * 24 * time.Hour

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// orderTransitions — явная таблица разрешённых переходов.
// Назад и "через шаг" двигаться нельзя; отмена доступна из любого нетерминального статуса.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// CanTransitionTo проверяет переход по таблице. Повторная установка текущего
// статуса считается идемпотентной и разрешена.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CustomerDetails — снапшот контактов и адреса доставки на момент оформления.
type CustomerDetails struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// Empty сообщает, что данные покупателя не заполнены.
func (c CustomerDetails) Empty() bool {
	return c.Name == "" && c.Address == ""
}

// PaymentDetails — снапшот способа оплаты; реквизиты целиком не храним.
type PaymentDetails struct {
	Method    string `json:"method"`
	CardLast4 string `json:"card_last4,omitempty"`
}

// OrderItem представляет одну позицию заказа.
// Позиция создаётся один раз вместе с заказом и после этого не изменяется.
type OrderItem struct {
	ID      int64
	OrderID int64
	// ProductID — ссылка на товар каталога.
	ProductID int64
	// ProductName и ProductImage — снапшот карточки на момент покупки.
	ProductName  string
	ProductImage string
	// Qty — количество единиц товара.
	Qty int32
	// PriceMinor — цена за единицу на момент покупки, независимая от каталога.
	PriceMinor int64
	CreatedAt  time.Time
}

// Order агрегирует состояние заказа и его позиции.
type Order struct {
	ID int64
	// Number — человекочитаемый номер вида ORD-<год>-<id>; уникален и неизменяем.
	Number string
	UserID int64

	SubtotalMinor int64
	ShippingMinor int64
	TaxMinor      int64
	TotalMinor    int64

	Status   OrderStatus
	Customer CustomerDetails
	Payment  PaymentDetails

	EstimatedDelivery time.Time
	// DeliveredAt заполняется только при переходе в delivered и больше не очищается.
	DeliveredAt    *time.Time
	TrackingNumber string
	Notes          string

	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID <= 0 {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.Customer.Empty() {
		errs = append(errs, ErrCustomerDetailsRequired)
	}
	if o.Payment.Method == "" {
		errs = append(errs, ErrPaymentMethodRequired)
	}
	if o.SubtotalMinor < 0 || o.ShippingMinor < 0 || o.TaxMinor < 0 || o.TotalMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
	}

	// Сверяем итог с суммой слагаемых; состав позиций клиент мог собрать по старым
	// ценам, поэтому subtotal с позициями не сверяем.
	if o.SubtotalMinor+o.ShippingMinor+o.TaxMinor != o.TotalMinor {
		errs = append(errs, ErrTotalsMismatch)
	}

	return errs
}

// FormatOrderNumber форматирует номер заказа из года и первичного ключа.
// Функция чистая: уникальность гарантирует сам ключ, отдельного счётчика нет.
func FormatOrderNumber(year int, id int64) string {
	return fmt.Sprintf("ORD-%d-%06d", year, id)
}

// OrderRef — ссылка на заказ: числовой id либо номер ORD-....
// Разбор выполняется один раз на границе, чтобы не размазывать OR-условия по коду.
type OrderRef struct {
	ID     int64
	Number string
}

// ParseOrderRef разбирает строковую ссылку на заказ.
func ParseOrderRef(raw string) (OrderRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return OrderRef{}, ErrOrderRefRequired
	}
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
		return OrderRef{ID: id}, nil
	}
	return OrderRef{Number: raw}, nil
}

// IsZero сообщает, что ссылка пуста.
func (r OrderRef) IsZero() bool {
	return r.ID == 0 && r.Number == ""
}

func (r OrderRef) String() string {
	if r.ID > 0 {
		return strconv.FormatInt(r.ID, 10)
	}
	return r.Number
}

// StatusChange описывает применяемое изменение статуса заказа.
// nil-указатель означает "поле не трогаем", непустой указатель с пустой строкой — очистку.
type StatusChange struct {
	Status OrderStatus
	// ExpectedStatus — статус, из которого валидировался переход. Хранилище
	// применяет изменение только если заказ всё ещё в этом статусе (optimistic
	// lock); иначе возвращает ErrStatusConflict.
	ExpectedStatus OrderStatus
	// DeliveredAt устанавливается при первом переходе в delivered.
	DeliveredAt    *time.Time
	TrackingNumber *string
	Notes          *string
	// Restock — вернуть остатки на склад (путь отмены).
	Restock bool
}
