package memory_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestInventoryLedger_ReserveAndCommit(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 5)
	ledger := memory.NewInventoryLedger(store)
	products := memory.NewProductRepository(store)

	if err := ledger.ReserveAndCommit(product.ID, 3); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	updated, _ := products.Get(product.ID)
	if updated.Stock != 2 || updated.Sold != 3 {
		t.Fatalf("expected stock=2 sold=3, got %+v", updated)
	}
}

func TestInventoryLedger_InsufficientStock(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 5)
	ledger := memory.NewInventoryLedger(store)
	products := memory.NewProductRepository(store)

	err := ledger.ReserveAndCommit(product.ID, 6)
	if !domain.IsInsufficientStock(err) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	updated, _ := products.Get(product.ID)
	if updated.Stock != 5 || updated.Sold != 0 {
		t.Fatalf("stock must be unchanged, got %+v", updated)
	}
}

func TestInventoryLedger_UnknownProduct(t *testing.T) {
	store := memory.NewStore()
	ledger := memory.NewInventoryLedger(store)

	if err := ledger.ReserveAndCommit(404, 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestInventoryLedger_Restock(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 5)
	ledger := memory.NewInventoryLedger(store)
	products := memory.NewProductRepository(store)

	if err := ledger.ReserveAndCommit(product.ID, 4); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := ledger.Restock(product.ID, 4); err != nil {
		t.Fatalf("restock failed: %v", err)
	}

	updated, _ := products.Get(product.ID)
	if updated.Stock != 5 || updated.Sold != 0 {
		t.Fatalf("expected stock=5 sold=0, got %+v", updated)
	}
}

func TestInventoryLedger_NeverNegativeUnderConcurrency(t *testing.T) {
	store := memory.NewStore()
	product := seedProduct(t, store, 50)
	ledger := memory.NewInventoryLedger(store)
	products := memory.NewProductRepository(store)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ledger.ReserveAndCommit(product.ID, 1)
		}()
	}
	wg.Wait()

	updated, _ := products.Get(product.ID)
	if updated.Stock < 0 {
		t.Fatalf("stock went negative: %d", updated.Stock)
	}
	if updated.Stock+updated.Sold != 50 {
		t.Fatalf("stock+sold must be conserved, got %d+%d", updated.Stock, updated.Sold)
	}
	if updated.Stock != 0 || updated.Sold != 50 {
		t.Fatalf("expected full sellout, got %+v", updated)
	}
}
