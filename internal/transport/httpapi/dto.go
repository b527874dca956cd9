package httpapi

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type orderItemPayload struct {
	ProductID int64 `json:"product_id"`
	Qty       int32 `json:"qty"`
}

type customerPayload struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

type paymentPayload struct {
	Method    string `json:"method"`
	CardLast4 string `json:"card_last4,omitempty"`
}

type placeOrderPayload struct {
	Items         []orderItemPayload `json:"items"`
	SubtotalMinor int64              `json:"subtotal_minor"`
	ShippingMinor int64              `json:"shipping_minor"`
	TaxMinor      int64              `json:"tax_minor"`
	TotalMinor    int64              `json:"total_minor"`
	Customer      customerPayload    `json:"customer"`
	Payment       paymentPayload     `json:"payment"`
	Notes         string             `json:"notes,omitempty"`
}

type updateStatusPayload struct {
	Status string `json:"status"`
	// nil — поле не трогаем, пустая строка — очистка.
	TrackingNumber *string `json:"tracking_number"`
	Notes          *string `json:"notes"`
}

type orderItemView struct {
	ID           int64  `json:"id"`
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	ProductImage string `json:"product_image,omitempty"`
	Qty          int32  `json:"qty"`
	PriceMinor   int64  `json:"price_minor"`
}

type orderView struct {
	ID                int64           `json:"id"`
	OrderNumber       string          `json:"order_number"`
	UserID            int64           `json:"user_id"`
	Status            string          `json:"status"`
	SubtotalMinor     int64           `json:"subtotal_minor"`
	ShippingMinor     int64           `json:"shipping_minor"`
	TaxMinor          int64           `json:"tax_minor"`
	TotalMinor        int64           `json:"total_minor"`
	Customer          customerPayload `json:"customer"`
	Payment           paymentPayload  `json:"payment"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time      `json:"delivered_at,omitempty"`
	TrackingNumber    string          `json:"tracking_number,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	Items             []orderItemView `json:"items"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type timelineEventView struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

type adminOrderView struct {
	orderView
	Timeline []timelineEventView `json:"timeline,omitempty"`
}

type reviewPayload struct {
	ProductID int64  `json:"product_id"`
	OrderID   int64  `json:"order_id"`
	Rating    int32  `json:"rating"`
	Title     string `json:"title,omitempty"`
	Comment   string `json:"comment,omitempty"`
	Recommend *bool  `json:"recommend"`
}

type updateReviewPayload struct {
	Rating    int32  `json:"rating"`
	Title     string `json:"title,omitempty"`
	Comment   string `json:"comment,omitempty"`
	Recommend *bool  `json:"recommend"`
}

type reviewView struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	ProductID        int64     `json:"product_id"`
	OrderID          int64     `json:"order_id"`
	Rating           int32     `json:"rating"`
	Title            string    `json:"title,omitempty"`
	Comment          string    `json:"comment,omitempty"`
	Recommend        *bool     `json:"recommend,omitempty"`
	VerifiedPurchase bool      `json:"verified_purchase"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type eligibilityPayload struct {
	ProductID int64 `json:"product_id"`
	OrderID   int64 `json:"order_id"`
}

type eligibilityView struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

type reviewStatsView struct {
	TotalReviews          int32           `json:"total_reviews"`
	AverageRating         float64         `json:"average_rating"`
	RatingDistribution    map[int32]int32 `json:"rating_distribution"`
	RecommendationPercent float64         `json:"recommendation_percent"`
}

func toOrderView(order domain.Order) orderView {
	view := orderView{
		ID:            order.ID,
		OrderNumber:   order.Number,
		UserID:        order.UserID,
		Status:        string(order.Status),
		SubtotalMinor: order.SubtotalMinor,
		ShippingMinor: order.ShippingMinor,
		TaxMinor:      order.TaxMinor,
		TotalMinor:    order.TotalMinor,
		Customer: customerPayload{
			Name:       order.Customer.Name,
			Email:      order.Customer.Email,
			Phone:      order.Customer.Phone,
			Address:    order.Customer.Address,
			City:       order.Customer.City,
			PostalCode: order.Customer.PostalCode,
			Country:    order.Customer.Country,
		},
		Payment: paymentPayload{
			Method:    order.Payment.Method,
			CardLast4: order.Payment.CardLast4,
		},
		DeliveredAt:    order.DeliveredAt,
		TrackingNumber: order.TrackingNumber,
		Notes:          order.Notes,
		Items:          make([]orderItemView, 0, len(order.Items)),
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
	if !order.EstimatedDelivery.IsZero() {
		estimated := order.EstimatedDelivery
		view.EstimatedDelivery = &estimated
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, orderItemView{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			Qty:          item.Qty,
			PriceMinor:   item.PriceMinor,
		})
	}
	return view
}

func toReviewView(review domain.Review) reviewView {
	return reviewView{
		ID:               review.ID,
		UserID:           review.UserID,
		ProductID:        review.ProductID,
		OrderID:          review.OrderID,
		Rating:           review.Rating,
		Title:            review.Title,
		Comment:          review.Comment,
		Recommend:        review.Recommend,
		VerifiedPurchase: review.VerifiedPurchase,
		CreatedAt:        review.CreatedAt,
		UpdatedAt:        review.UpdatedAt,
	}
}
