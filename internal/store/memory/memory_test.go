package memory

import (
	"context"
	"testing"

	"lafavorita/backend/internal/store"
	"lafavorita/backend/internal/store/storetest"
)

func TestRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		return NewSeeded()
	})
}

func TestListProductsReturnsCopies(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	products, err := s.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	products[0].Stock = 0

	again, _ := s.GetProduct(ctx, "1")
	if again.Stock != 50 {
		t.Fatalf("expected stored stock to be untouched, got %d", again.Stock)
	}
}
