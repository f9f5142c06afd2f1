// Package storetest holds the behavior every store.Repository must share.
// Backends call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/store"
)

// Run exercises repo constructors that return a store seeded with the
// default data set.
func Run(t *testing.T, newSeeded func(t *testing.T) store.Repository) {
	t.Run("Seeded", func(t *testing.T) { testSeeded(t, newSeeded(t)) })
	t.Run("ProductLifecycle", func(t *testing.T) { testProductLifecycle(t, newSeeded(t)) })
	t.Run("CommitSale", func(t *testing.T) { testCommitSale(t, newSeeded(t)) })
	t.Run("CommitSaleIsAllOrNothing", func(t *testing.T) { testCommitSaleAtomic(t, newSeeded(t)) })
	t.Run("UserLifecycle", func(t *testing.T) { testUserLifecycle(t, newSeeded(t)) })
	t.Run("PartialImport", func(t *testing.T) { testPartialImport(t, newSeeded(t)) })
	t.Run("Reset", func(t *testing.T) { testReset(t, newSeeded(t)) })
}

func testSeeded(t *testing.T, repo store.Repository) {
	ctx := context.Background()

	products, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 6)
	assert.Equal(t, "Coca-Cola 600ml", products[0].Name)

	water, err := repo.GetProduct(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 240, water.Stock)
	assert.Equal(t, 12, water.UnitsPerPackage)
	require.NotNil(t, water.PriceWholesale)
	assert.True(t, water.PriceWholesale.Equal(decimal.NewFromInt(90)))

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	admin, err := repo.GetUser(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, admin.SecurityQuestions)
	assert.Equal(t, "mango", admin.SecurityQuestions.Answer1)

	sales, err := repo.ListSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func testProductLifecycle(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	p := domain.Product{
		ID: "p-test", Name: "Frijol 1kg", CostPrice: decimal.RequireFromString("18.5"), Price: decimal.NewFromInt(27),
		Stock: 10, Category: "Granos", UnitType: domain.UnitTypeUnit, ExpirationDate: "2027-01-31",
	}

	_, err := repo.CreateProduct(ctx, p)
	require.NoError(t, err)
	_, err = repo.CreateProduct(ctx, p)
	assert.ErrorIs(t, err, store.ErrDuplicate)

	p.Price = decimal.RequireFromString("24.3")
	p.IsOnSale = true
	original := decimal.NewFromInt(27)
	p.OriginalPrice = &original
	_, err = repo.UpdateProduct(ctx, p)
	require.NoError(t, err)

	got, err := repo.GetProduct(ctx, "p-test")
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("24.3")))
	assert.True(t, got.CostPrice.Equal(decimal.RequireFromString("18.5")))
	assert.True(t, got.IsOnSale)
	require.NotNil(t, got.OriginalPrice)
	assert.Equal(t, "2027-01-31", got.ExpirationDate)

	require.NoError(t, repo.DeleteProduct(ctx, "p-test"))
	_, err = repo.GetProduct(ctx, "p-test")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteProduct(ctx, "p-test"), store.ErrNotFound)

	_, err = repo.UpdateProduct(ctx, domain.Product{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func saleFor(id string, product domain.Product, qty int) domain.Sale {
	paid := decimal.NewFromInt(1000)
	change := decimal.Zero
	return domain.Sale{
		ID:            id,
		Date:          time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
		Items:         []domain.SaleLine{{Product: product, Quantity: qty, Discount: 5, SellByPackage: true}},
		Total:         product.Price.Mul(decimal.NewFromInt(int64(qty))),
		PaymentMethod: domain.PaymentCash,
		AmountPaid:    &paid,
		Change:        &change,
		Operator:      "admin",
	}
}

func testCommitSale(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	water, err := repo.GetProduct(ctx, "2")
	require.NoError(t, err)

	err = repo.CommitSale(ctx, saleFor("sale-1", *water, 24), map[string]int{"2": 24, "1": 2})
	require.NoError(t, err)

	after, err := repo.GetProduct(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 216, after.Stock)
	cola, err := repo.GetProduct(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 48, cola.Stock)

	sales, err := repo.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "sale-1", sales[0].ID)
	assert.Equal(t, 24, sales[0].Items[0].Quantity)
	assert.True(t, sales[0].Items[0].SellByPackage)
	assert.Equal(t, float64(5), sales[0].Items[0].Discount)
	assert.Equal(t, "Agua Purificada", sales[0].Items[0].Product.Name)
	require.NotNil(t, sales[0].AmountPaid)
	assert.True(t, sales[0].AmountPaid.Equal(decimal.NewFromInt(1000)))
}

func testCommitSaleAtomic(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	cola, err := repo.GetProduct(ctx, "1")
	require.NoError(t, err)

	err = repo.CommitSale(ctx, saleFor("sale-x", *cola, 1), map[string]int{"1": 1, "6": 26})
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	err = repo.CommitSale(ctx, saleFor("sale-y", *cola, 1), map[string]int{"1": 1, "nope": 1})
	assert.ErrorIs(t, err, store.ErrNotFound)

	after, err := repo.GetProduct(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 50, after.Stock)
	oil, err := repo.GetProduct(ctx, "6")
	require.NoError(t, err)
	assert.Equal(t, 25, oil.Stock)
	sales, err := repo.ListSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)
}

func testUserLifecycle(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	user := domain.User{Username: "cajera2", Password: "secret1", Role: domain.RoleEmployee, Name: "María"}

	require.NoError(t, repo.CreateUser(ctx, user))
	assert.ErrorIs(t, repo.CreateUser(ctx, user), store.ErrDuplicate)

	renamed := user
	renamed.Username = "maria"
	require.NoError(t, repo.UpdateUser(ctx, "cajera2", renamed))
	_, err := repo.GetUser(ctx, "cajera2")
	assert.ErrorIs(t, err, store.ErrNotFound)
	got, err := repo.GetUser(ctx, "maria")
	require.NoError(t, err)
	assert.Equal(t, "María", got.Name)

	clash := renamed
	clash.Username = "admin"
	assert.ErrorIs(t, repo.UpdateUser(ctx, "maria", clash), store.ErrDuplicate)
	assert.ErrorIs(t, repo.UpdateUser(ctx, "ghost", renamed), store.ErrNotFound)

	require.NoError(t, repo.DeleteUser(ctx, "maria"))
	assert.ErrorIs(t, repo.DeleteUser(ctx, "maria"), store.ErrNotFound)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func testPartialImport(t *testing.T, repo store.Repository) {
	ctx := context.Background()

	err := repo.Import(ctx, domain.Backup{Products: []domain.Product{
		{ID: "only", Name: "Sal 1kg", CostPrice: decimal.NewFromInt(8), Price: decimal.NewFromInt(12), Stock: 3, Category: "Abarrotes", UnitType: domain.UnitTypeUnit},
	}})
	require.NoError(t, err)

	products, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "only", products[0].ID)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2, "users were absent from the document")

	doc, err := repo.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, doc.Products, 1)
	assert.Len(t, doc.Users, 2)
}

func testReset(t *testing.T, repo store.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.DeleteProduct(ctx, "3"))
	cola, err := repo.GetProduct(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, repo.CommitSale(ctx, saleFor("s", *cola, 1), map[string]int{"1": 1}))

	require.NoError(t, repo.Reset(ctx))

	products, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 6)
	sales, err := repo.ListSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)
}
