package review

import (
	"errors"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/rating"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type testEnv struct {
	service  *Service
	orders   domain.OrderRepository
	products domain.ProductRepository
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	orders := memory.NewOrderRepository(store)
	reviews := memory.NewReviewRepository(store)

	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	entry := logger.WithField("component", "review-test")

	updater := rating.NewUpdaterWithoutMetrics(products, entry)
	return testEnv{
		service:  NewServiceWithoutMetrics(reviews, updater, entry),
		orders:   orders,
		products: products,
	}
}

// deliveredPurchase оформляет и доставляет заказ на один товар.
func (e testEnv) deliveredPurchase(t *testing.T, userID int64) (domain.Product, domain.Order) {
	t.Helper()

	product, err := e.products.Create(domain.Product{Name: "gadget", PriceMinor: 2_000, Stock: 50})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	order, err := e.orders.Create(domain.Order{
		UserID:        userID,
		SubtotalMinor: 2_000,
		TotalMinor:    2_000,
		Status:        domain.OrderStatusPending,
		Customer:      domain.CustomerDetails{Name: "Buyer", Address: "Main Street 1"},
		Payment:       domain.PaymentDetails{Method: "card"},
		Items: []domain.OrderItem{
			{ProductID: product.ID, ProductName: product.Name, Qty: 1, PriceMinor: product.PriceMinor},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	prev := domain.OrderStatusPending
	for _, next := range []domain.OrderStatus{domain.OrderStatusProcessing, domain.OrderStatusShipped, domain.OrderStatusDelivered} {
		change := domain.StatusChange{Status: next, ExpectedStatus: prev}
		if next == domain.OrderStatusDelivered {
			now := time.Now().UTC()
			change.DeliveredAt = &now
		}
		if _, err := e.orders.ApplyStatusChange(order.ID, change); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
		prev = next
	}

	return product, order
}

func TestService_SubmitGatedLifecycle(t *testing.T) {
	env := newTestEnv(t)
	product, order := env.deliveredPurchase(t, 31)

	elig, err := env.service.CheckEligibility(31, product.ID, order.ID)
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if !elig.Eligible {
		t.Fatalf("expected eligible, got %+v", elig)
	}

	created, err := env.service.Submit(domain.Review{
		UserID: 31, ProductID: product.ID, OrderID: order.ID,
		Rating: 5, Title: "great",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !created.VerifiedPurchase {
		t.Fatal("gated submit must mark verified purchase")
	}
	if created.OrderItemID == 0 {
		t.Fatal("review must be bound to an order item")
	}

	// Агрегат пересчитан синхронно.
	got, err := env.products.Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Rating != 5.0 || got.ReviewCount != 1 {
		t.Fatalf("aggregate not recomputed: rating=%v count=%d", got.Rating, got.ReviewCount)
	}

	// Повторный отзыв на ту же покупку.
	if _, err := env.service.Submit(domain.Review{
		UserID: 31, ProductID: product.ID, OrderID: order.ID, Rating: 4,
	}); !errors.Is(err, domain.ErrDuplicateReview) {
		t.Fatalf("expected ErrDuplicateReview, got %v", err)
	}

	elig, err = env.service.CheckEligibility(31, product.ID, order.ID)
	if err != nil {
		t.Fatalf("check eligibility after submit: %v", err)
	}
	if elig.Eligible || elig.Reason != domain.EligibilityReasonAlreadyReviewed {
		t.Fatalf("expected already reviewed, got %+v", elig)
	}
}

func TestService_SubmitRejectsUndeliveredOrder(t *testing.T) {
	env := newTestEnv(t)

	product, err := env.products.Create(domain.Product{Name: "thing", PriceMinor: 1_000, Stock: 5})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	order, err := env.orders.Create(domain.Order{
		UserID:        31,
		SubtotalMinor: 1_000,
		TotalMinor:    1_000,
		Status:        domain.OrderStatusPending,
		Customer:      domain.CustomerDetails{Name: "Buyer", Address: "Main Street 1"},
		Payment:       domain.PaymentDetails{Method: "card"},
		Items: []domain.OrderItem{
			{ProductID: product.ID, ProductName: product.Name, Qty: 1, PriceMinor: product.PriceMinor},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := env.orders.ApplyStatusChange(order.ID, domain.StatusChange{
		Status: domain.OrderStatusProcessing, ExpectedStatus: domain.OrderStatusPending,
	}); err != nil {
		t.Fatalf("to processing: %v", err)
	}

	elig, err := env.service.CheckEligibility(31, product.ID, order.ID)
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if elig.Eligible || elig.Reason != domain.EligibilityReasonNotDelivered {
		t.Fatalf("expected not delivered, got %+v", elig)
	}

	if _, err := env.service.Submit(domain.Review{
		UserID: 31, ProductID: product.ID, OrderID: order.ID, Rating: 5,
	}); !errors.Is(err, domain.ErrReviewNotEligible) {
		t.Fatalf("expected ErrReviewNotEligible, got %v", err)
	}
}

func TestService_SubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	product, order := env.deliveredPurchase(t, 31)

	if _, err := env.service.Submit(domain.Review{
		UserID: 31, ProductID: product.ID, OrderID: order.ID, Rating: 6,
	}); !errors.Is(err, domain.ErrRatingOutOfRange) {
		t.Fatalf("expected ErrRatingOutOfRange, got %v", err)
	}

	if _, err := env.service.CheckEligibility(0, product.ID, order.ID); !errors.Is(err, domain.ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
}

func TestService_UpdateAndDeleteRecomputeAggregate(t *testing.T) {
	env := newTestEnv(t)

	// Три покупателя, оценки [5, 4, 3] -> 4.0.
	var productID int64
	reviewIDs := make(map[int32]int64)
	for _, r := range []struct {
		userID int64
		rating int32
	}{{41, 5}, {42, 4}, {43, 3}} {
		product, order := env.deliveredPurchase(t, r.userID)
		if productID == 0 {
			productID = product.ID
		}
		// В этой среде каждый заказ ссылается на собственный товар, поэтому
		// агрегат проверяем на первом из них.
		created, err := env.service.Submit(domain.Review{
			UserID: r.userID, ProductID: product.ID, OrderID: order.ID, Rating: r.rating,
		})
		if err != nil {
			t.Fatalf("submit rating %d: %v", r.rating, err)
		}
		reviewIDs[r.rating] = created.ID
	}

	first, err := env.products.Get(productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if first.Rating != 5.0 || first.ReviewCount != 1 {
		t.Fatalf("unexpected aggregate: rating=%v count=%d", first.Rating, first.ReviewCount)
	}

	// Обновление меняет агрегат.
	updated, err := env.service.Update(domain.Review{ID: reviewIDs[5], UserID: 41, Rating: 1})
	if err != nil {
		t.Fatalf("update review: %v", err)
	}
	if updated.Rating != 1 {
		t.Fatalf("unexpected rating after update: %d", updated.Rating)
	}
	recomputed, err := env.products.Get(productID)
	if err != nil {
		t.Fatalf("get product after update: %v", err)
	}
	if recomputed.Rating != 1.0 || recomputed.ReviewCount != 1 {
		t.Fatalf("aggregate not recomputed after update: rating=%v count=%d", recomputed.Rating, recomputed.ReviewCount)
	}

	// Чужой отзыв неотличим от отсутствующего.
	if _, err := env.service.Update(domain.Review{ID: reviewIDs[4], UserID: 41, Rating: 2}); !errors.Is(err, domain.ErrReviewNotFound) {
		t.Fatalf("expected ErrReviewNotFound for foreign update, got %v", err)
	}
	if err := env.service.Delete(reviewIDs[4], 41, false); !errors.Is(err, domain.ErrReviewNotFound) {
		t.Fatalf("expected ErrReviewNotFound for foreign delete, got %v", err)
	}

	// Удаление владельцем обнуляет агрегат.
	if err := env.service.Delete(reviewIDs[5], 41, false); err != nil {
		t.Fatalf("delete review: %v", err)
	}
	empty, err := env.products.Get(productID)
	if err != nil {
		t.Fatalf("get product after delete: %v", err)
	}
	if empty.Rating != 0 || empty.ReviewCount != 0 {
		t.Fatalf("aggregate must reset to zero: rating=%v count=%d", empty.Rating, empty.ReviewCount)
	}

	// admin удаляет чужой отзыв.
	if err := env.service.Delete(reviewIDs[4], 999, true); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestService_RatingUpdaterFullRecompute(t *testing.T) {
	env := newTestEnv(t)

	// Один товар, несколько доставленных заказов разных пользователей.
	product, err := env.products.Create(domain.Product{Name: "shared", PriceMinor: 3_000, Stock: 100})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	submit := func(userID int64, ratingValue int32) int64 {
		t.Helper()
		order, err := env.orders.Create(domain.Order{
			UserID:        userID,
			SubtotalMinor: 3_000,
			TotalMinor:    3_000,
			Status:        domain.OrderStatusPending,
			Customer:      domain.CustomerDetails{Name: "Buyer", Address: "Main Street 1"},
			Payment:       domain.PaymentDetails{Method: "card"},
			Items: []domain.OrderItem{
				{ProductID: product.ID, ProductName: product.Name, Qty: 1, PriceMinor: product.PriceMinor},
			},
		})
		if err != nil {
			t.Fatalf("create order: %v", err)
		}
		prev := domain.OrderStatusPending
		for _, next := range []domain.OrderStatus{domain.OrderStatusProcessing, domain.OrderStatusShipped, domain.OrderStatusDelivered} {
			change := domain.StatusChange{Status: next, ExpectedStatus: prev}
			if next == domain.OrderStatusDelivered {
				now := time.Now().UTC()
				change.DeliveredAt = &now
			}
			if _, err := env.orders.ApplyStatusChange(order.ID, change); err != nil {
				t.Fatalf("transition: %v", err)
			}
			prev = next
		}
		created, err := env.service.Submit(domain.Review{
			UserID: userID, ProductID: product.ID, OrderID: order.ID, Rating: ratingValue,
		})
		if err != nil {
			t.Fatalf("submit rating %d: %v", ratingValue, err)
		}
		return created.ID
	}

	submit(51, 5)
	submit(52, 4)
	thirdID := submit(53, 3)

	got, err := env.products.Get(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.Rating != 4.0 || got.ReviewCount != 3 {
		t.Fatalf("expected 4.0/3, got %v/%d", got.Rating, got.ReviewCount)
	}

	if err := env.service.Delete(thirdID, 53, false); err != nil {
		t.Fatalf("delete review: %v", err)
	}
	got, err = env.products.Get(product.ID)
	if err != nil {
		t.Fatalf("get product after delete: %v", err)
	}
	if got.Rating != 4.5 || got.ReviewCount != 2 {
		t.Fatalf("expected 4.5/2 after delete, got %v/%d", got.Rating, got.ReviewCount)
	}
}
