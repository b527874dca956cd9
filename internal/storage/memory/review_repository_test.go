package memory_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

// deliveredOrder оформляет заказ и доводит его до delivered.
func deliveredOrder(t *testing.T, store *memory.Store, product domain.Product, userID int64) domain.Order {
	t.Helper()
	repo := memory.NewOrderRepository(store)

	order := newOrderFor(product, 1)
	order.UserID = userID
	created, err := repo.Create(order)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	updated, err := repo.ApplyStatusChange(created.ID, domain.StatusChange{
		Status:         domain.OrderStatusDelivered,
		ExpectedStatus: domain.OrderStatusPending,
	})
	if err != nil {
		t.Fatalf("deliver order: %v", err)
	}
	return updated
}

func TestReviewRepository_EligibilityLifecycle(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 10)
	orders := memory.NewOrderRepository(store)
	reviews := memory.NewReviewRepository(store)

	order := newOrderFor(product, 1)
	created, err := orders.Create(order)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// Заказ ещё не доставлен: отзыв не разрешён.
	elig, err := reviews.Eligibility(7, product.ID, created.ID)
	if err != nil {
		t.Fatalf("eligibility: %v", err)
	}
	if elig.Eligible || elig.Reason != domain.EligibilityReasonNotDelivered {
		t.Fatalf("expected not_delivered, got %+v", elig)
	}

	if _, err := orders.ApplyStatusChange(created.ID, domain.StatusChange{
		Status: domain.OrderStatusProcessing, ExpectedStatus: domain.OrderStatusPending,
	}); err != nil {
		t.Fatalf("processing: %v", err)
	}
	if _, err := orders.ApplyStatusChange(created.ID, domain.StatusChange{
		Status: domain.OrderStatusShipped, ExpectedStatus: domain.OrderStatusProcessing,
	}); err != nil {
		t.Fatalf("shipped: %v", err)
	}
	if _, err := orders.ApplyStatusChange(created.ID, domain.StatusChange{
		Status: domain.OrderStatusDelivered, ExpectedStatus: domain.OrderStatusShipped,
	}); err != nil {
		t.Fatalf("delivered: %v", err)
	}

	elig, _ = reviews.Eligibility(7, product.ID, created.ID)
	if !elig.Eligible {
		t.Fatalf("expected eligible after delivery, got %+v", elig)
	}
	if elig.OrderItemID == 0 {
		t.Fatal("eligibility must resolve order item")
	}
}

func TestReviewRepository_EligibilityRejections(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 10)
	order := deliveredOrder(t, store, product, 7)
	reviews := memory.NewReviewRepository(store)

	tests := []struct {
		name      string
		userID    int64
		productID int64
		orderID   int64
		reason    domain.EligibilityReason
	}{
		{name: "unknown order", userID: 7, productID: product.ID, orderID: 999, reason: domain.EligibilityReasonOrderNotFound},
		{name: "foreign order", userID: 42, productID: product.ID, orderID: order.ID, reason: domain.EligibilityReasonOrderNotFound},
		{name: "product not in order", userID: 7, productID: 888, orderID: order.ID, reason: domain.EligibilityReasonProductNotInOrder},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			elig, err := reviews.Eligibility(tc.userID, tc.productID, tc.orderID)
			if err != nil {
				t.Fatalf("eligibility: %v", err)
			}
			if elig.Eligible || elig.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %+v", tc.reason, elig)
			}
		})
	}
}

func TestReviewRepository_CreateOnceThenDuplicate(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 10)
	order := deliveredOrder(t, store, product, 7)
	reviews := memory.NewReviewRepository(store)

	review := domain.Review{
		UserID:    7,
		ProductID: product.ID,
		OrderID:   order.ID,
		Rating:    5,
		Title:     "great mug",
	}

	created, err := reviews.Create(review)
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if created.ID == 0 || created.OrderItemID == 0 {
		t.Fatalf("review not linked: %+v", created)
	}

	if _, err := reviews.Create(review); !errors.Is(err, domain.ErrDuplicateReview) {
		t.Fatalf("expected ErrDuplicateReview, got %v", err)
	}
}

func TestReviewRepository_CreateNotDelivered(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 10)
	orders := memory.NewOrderRepository(store)
	reviews := memory.NewReviewRepository(store)

	created, _ := orders.Create(newOrderFor(product, 1))

	_, err := reviews.Create(domain.Review{
		UserID: 7, ProductID: product.ID, OrderID: created.ID, Rating: 4,
	})
	if !errors.Is(err, domain.ErrReviewNotEligible) {
		t.Fatalf("expected ErrReviewNotEligible, got %v", err)
	}
}

func TestReviewRepository_UpdateScopedToOwner(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 10)
	order := deliveredOrder(t, store, product, 7)
	reviews := memory.NewReviewRepository(store)

	created, err := reviews.Create(domain.Review{
		UserID: 7, ProductID: product.ID, OrderID: order.ID, Rating: 3,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	created.Rating = 4
	updated, err := reviews.Update(created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Rating != 4 {
		t.Fatalf("rating not updated: %d", updated.Rating)
	}

	foreign := created
	foreign.UserID = 42
	if _, err := reviews.Update(foreign); !errors.Is(err, domain.ErrReviewNotFound) {
		t.Fatalf("foreign update must look like not found, got %v", err)
	}
}

func TestReviewRepository_DeleteScopedToOwner(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 10)
	order := deliveredOrder(t, store, product, 7)
	reviews := memory.NewReviewRepository(store)

	created, _ := reviews.Create(domain.Review{
		UserID: 7, ProductID: product.ID, OrderID: order.ID, Rating: 3,
	})

	if _, err := reviews.Delete(created.ID, 42, false); !errors.Is(err, domain.ErrReviewNotFound) {
		t.Fatalf("foreign delete must look like not found, got %v", err)
	}

	if _, err := reviews.Delete(created.ID, 42, true); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}

	if _, err := reviews.Get(created.ID); !errors.Is(err, domain.ErrReviewNotFound) {
		t.Fatalf("review must be gone, got %v", err)
	}
}

func TestReviewRepository_Stats(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 100)
	reviews := memory.NewReviewRepository(store)

	yes, no := true, false
	ratings := []struct {
		rating    int32
		recommend *bool
	}{
		{5, &yes},
		{4, &yes},
		{3, &no},
	}
	for i, rv := range ratings {
		order := deliveredOrder(t, store, product, int64(100+i))
		if _, err := reviews.Create(domain.Review{
			UserID: int64(100 + i), ProductID: product.ID, OrderID: order.ID,
			Rating: rv.rating, Recommend: rv.recommend,
		}); err != nil {
			t.Fatalf("create review %d: %v", i, err)
		}
	}

	stats, err := reviews.Stats(product.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalReviews != 3 {
		t.Fatalf("expected 3 reviews, got %d", stats.TotalReviews)
	}
	if stats.AverageRating != 4.0 {
		t.Fatalf("expected average 4.0, got %v", stats.AverageRating)
	}
	if stats.RatingDistribution[5] != 1 || stats.RatingDistribution[4] != 1 || stats.RatingDistribution[3] != 1 {
		t.Fatalf("unexpected distribution: %+v", stats.RatingDistribution)
	}
	if stats.RatingDistribution[1] != 0 || stats.RatingDistribution[2] != 0 {
		t.Fatalf("distribution must cover all grades: %+v", stats.RatingDistribution)
	}
	if stats.RecommendationPercent != 66.7 {
		t.Fatalf("expected 66.7%% recommendation, got %v", stats.RecommendationPercent)
	}
}

func TestReviewRepository_StatsEmpty(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 10)
	reviews := memory.NewReviewRepository(store)

	stats, err := reviews.Stats(product.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalReviews != 0 || stats.AverageRating != 0 || stats.RecommendationPercent != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}
