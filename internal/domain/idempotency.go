package domain

import "time"

// IdempotencyStatus — этап обработки запроса с ключом идемпотентности.
type IdempotencyStatus string

const (
	// IdempotencyStatusProcessing — запрос принят, ответ ещё не зафиксирован.
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	// IdempotencyStatusDone — ответ сохранён и воспроизводится при повторе ключа.
	IdempotencyStatusDone IdempotencyStatus = "done"
	// IdempotencyStatusFailed — обработка упала; повтор с тем же ключом разрешён.
	IdempotencyStatusFailed IdempotencyStatus = "failed"
)

// IdempotencyRecord — сохранённое состояние запроса: хеш тела и ответ для повтора.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseBody []byte
	HTTPStatus   int
	Status       IdempotencyStatus
	TTLAt        time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Valid проверяет принадлежность статуса множеству поддерживаемых.
func (s IdempotencyStatus) Valid() bool {
	switch s {
	case IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed:
		return true
	default:
		return false
	}
}
