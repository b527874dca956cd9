package domain

// ProductRepository описывает требования к хранилищу каталога.
type ProductRepository interface {
	// Create сохраняет товар и возвращает запись с присвоенным id.
	Create(product Product) (Product, error)
	// Get возвращает товар или ErrProductNotFound, если его нет.
	Get(id int64) (Product, error)
	// SetInactive переключает операторский флаг "снят с продажи".
	SetInactive(id int64, inactive bool) error
	// RecomputeRating полностью пересчитывает rating/review_count из набора отзывов.
	// Инкрементальное обновление не используется, чтобы агрегат не расходился
	// при конкурентных изменениях отзывов.
	RecomputeRating(productID int64) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create атомарно сохраняет заказ: строку заказа, номер из присвоенного id,
	// все позиции и списание остатков. Любая ошибка откатывает всё целиком:
	// частично созданный заказ снаружи не наблюдаем.
	Create(order Order) (Order, error)
	// Get разрешает ссылку (id или номер) и возвращает заказ с позициями,
	// либо ErrOrderNotFound.
	Get(ref OrderRef) (Order, error)
	// ListByUser возвращает заказы покупателя, новые первыми.
	ListByUser(userID int64, limit int) ([]Order, error)
	// ApplyStatusChange применяет переход статуса одним атомарным шагом,
	// включая delivered_at, частичные обновления tracking/notes и возврат
	// остатков при отмене. Запись выполняется только если текущий статус
	// совпадает с change.ExpectedStatus; иначе — ErrStatusConflict.
	ApplyStatusChange(orderID int64, change StatusChange) (Order, error)
}

// ReviewRepository описывает требования к хранилищу отзывов.
type ReviewRepository interface {
	// Create сохраняет отзыв, повторно проверяя право на отзыв в той же
	// транзакции, что и вставка. Дубликат по (user, product, order, item)
	// возвращается как ErrDuplicateReview.
	Create(review Review) (Review, error)
	// Get возвращает отзыв по id или ErrReviewNotFound.
	Get(id int64) (Review, error)
	// Update изменяет отзыв владельца; чужой отзыв неотличим от отсутствующего.
	Update(review Review) (Review, error)
	// Delete удаляет отзыв владельца; admin снимает проверку владельца.
	Delete(id, userID int64, admin bool) (Review, error)
	// ListByProduct возвращает отзывы товара, новые первыми.
	ListByProduct(productID int64, limit int) ([]Review, error)
	// Eligibility проверяет право пользователя на отзыв по данной покупке.
	Eligibility(userID, productID, orderID int64) (Eligibility, error)
	// Stats считает распределение оценок и долю рекомендаций.
	Stats(productID int64) (ReviewStats, error)
}
