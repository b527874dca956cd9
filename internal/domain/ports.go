package domain

import "time"

// InventoryLedger — складской регистр: единственный владелец счётчиков stock/sold.
type InventoryLedger interface {
	// ReserveAndCommit атомарно проверяет остаток и списывает его (stock -= qty, sold += qty).
	// При нехватке возвращает *InsufficientStockError, ничего не изменив.
	ReserveAndCommit(productID int64, qty int32) error
	// Restock возвращает позиции на склад (компенсация при отмене заказа).
	Restock(productID int64, qty int32) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID int64) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	ID       string
	OrderID  int64
	Type     string
	Reason   string
	Occurred time.Time
}
