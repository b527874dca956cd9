package memory_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestProductRepository_CreateGet(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewProductRepository(store)

	created, err := repo.Create(domain.Product{Name: "mug", PriceMinor: 1500, Stock: 10})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected assigned id")
	}

	stored, err := repo.Get(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Name != "mug" || stored.Stock != 10 {
		t.Fatalf("unexpected product: %+v", stored)
	}

	if _, err := repo.Get(999); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductRepository_SetInactive(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewProductRepository(store)

	created, _ := repo.Create(domain.Product{Name: "mug", Stock: 10})
	if err := repo.SetInactive(created.ID, true); err != nil {
		t.Fatalf("set inactive: %v", err)
	}

	stored, _ := repo.Get(created.ID)
	if stored.Status() != domain.ProductStatusInactive {
		t.Fatalf("expected inactive, got %s", stored.Status())
	}
}

func TestProductRepository_RecomputeRating(t *testing.T) {
	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	reviews := memory.NewReviewRepository(store)

	product, _ := products.Create(domain.Product{Name: "mug", PriceMinor: 1500, Stock: 100})

	// Оценки [5,4,3] -> среднее 4.0; после удаления тройки -> 4.5.
	var withThree domain.Review
	for i, rating := range []int32{5, 4, 3} {
		userID := int64(10 + i)
		order := deliveredOrder(t, store, product, userID)
		created, err := reviews.Create(domain.Review{
			UserID: userID, ProductID: product.ID, OrderID: order.ID, Rating: rating,
		})
		if err != nil {
			t.Fatalf("create review: %v", err)
		}
		if rating == 3 {
			withThree = created
		}
	}

	if err := products.RecomputeRating(product.ID); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	updated, _ := products.Get(product.ID)
	if updated.Rating != 4.0 || updated.ReviewCount != 3 {
		t.Fatalf("expected 4.0/3, got %v/%d", updated.Rating, updated.ReviewCount)
	}

	if _, err := reviews.Delete(withThree.ID, withThree.UserID, false); err != nil {
		t.Fatalf("delete review: %v", err)
	}
	if err := products.RecomputeRating(product.ID); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	updated, _ = products.Get(product.ID)
	if updated.Rating != 4.5 || updated.ReviewCount != 2 {
		t.Fatalf("expected 4.5/2, got %v/%d", updated.Rating, updated.ReviewCount)
	}
}

func TestProductRepository_RecomputeRatingNoReviews(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewProductRepository(store)

	product, _ := repo.Create(domain.Product{Name: "mug", Stock: 1, Rating: 4.2, ReviewCount: 7})
	if err := repo.RecomputeRating(product.ID); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	updated, _ := repo.Get(product.ID)
	if updated.Rating != 0 || updated.ReviewCount != 0 {
		t.Fatalf("expected 0/0 without reviews, got %v/%d", updated.Rating, updated.ReviewCount)
	}
}
