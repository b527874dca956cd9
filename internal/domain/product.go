package domain

import "time"

// ProductStatus отражает доступность товара в витрине.
type ProductStatus string

const (
	// ProductStatusActive — товар доступен для заказа.
	ProductStatusActive ProductStatus = "active"
	// ProductStatusLowStock — остаток на складе близок к нулю.
	ProductStatusLowStock ProductStatus = "low_stock"
	// ProductStatusOutOfStock — остаток исчерпан.
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
	// ProductStatusInactive — товар снят с продажи оператором.
	ProductStatusInactive ProductStatus = "inactive"
)

// LowStockThreshold — остаток, начиная с которого товар считается low_stock.
const LowStockThreshold = 5

// Product описывает товар каталога вместе со складскими счётчиками.
// Поля Stock/Sold изменяются только складским регистром (InventoryLedger).
type Product struct {
	ID int64
	// Name — отображаемое название товара.
	Name string
	// PriceMinor — актуальная цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	// Stock — доступный остаток; инвариант stock >= 0 обеспечивает хранилище.
	Stock int32
	// Sold — сколько единиц продано через подтверждённые заказы.
	Sold int32
	// Rating — агрегат отзывов, округлённый до одного знака.
	Rating float64
	// ReviewCount — количество отзывов, из которых посчитан Rating.
	ReviewCount int32
	// Inactive — явный операторский флаг "снят с продажи".
	Inactive bool
	// ImageURL — основная картинка для снапшота в позициях заказа.
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status возвращает производный статус товара.
func (p *Product) Status() ProductStatus {
	return ProductStatusFor(p.Stock, p.Inactive)
}

// ProductStatusFor вычисляет статус как чистую функцию от остатка и флага оператора.
// Операторский inactive всегда важнее складских статусов.
func ProductStatusFor(stock int32, inactive bool) ProductStatus {
	switch {
	case inactive:
		return ProductStatusInactive
	case stock <= 0:
		return ProductStatusOutOfStock
	case stock <= LowStockThreshold:
		return ProductStatusLowStock
	default:
		return ProductStatusActive
	}
}
