package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/money"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNormalizeProductConvertsToBaseUnits(t *testing.T) {
	p, err := NormalizeProduct(nil, domain.ProductInput{
		Name:            " Arroz 1kg ",
		CostPrice:       d("15"),
		Price:           d("22"),
		PriceWholesale:  money.Ptr(d("250")),
		Quantity:        5,
		Category:        "Granos",
		UnitType:        domain.UnitTypeBox,
		UnitsPerPackage: 12,
	}, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Arroz 1kg", p.Name)
	assert.Equal(t, 60, p.Stock)
	assert.Equal(t, 12, p.UnitsPerPackage)
	require.NotNil(t, p.PriceWholesale)
}

func TestNormalizeProductUnitDropsPackageFields(t *testing.T) {
	p, err := NormalizeProduct(nil, domain.ProductInput{
		Name:            "Pan",
		Price:           d("35"),
		CostPrice:       d("20"),
		PriceWholesale:  money.Ptr(d("300")),
		Quantity:        7,
		Category:        "Panadería",
		UnitType:        domain.UnitTypeUnit,
		UnitsPerPackage: 12,
	}, "p2")
	require.NoError(t, err)
	assert.Equal(t, 7, p.Stock)
	assert.Zero(t, p.UnitsPerPackage)
	assert.Nil(t, p.PriceWholesale)
}

func TestNormalizeProductKeepsPromotionOnUpdate(t *testing.T) {
	existing := domain.Product{ID: "p1", IsOnSale: true, OriginalPrice: money.Ptr(d("30"))}
	p, err := NormalizeProduct(&existing, domain.ProductInput{Name: "X", Category: "Y", Price: d("27"), UnitType: domain.UnitTypeUnit}, "p1")
	require.NoError(t, err)
	assert.True(t, p.IsOnSale)
	assert.True(t, p.OriginalPrice.Equal(d("30")))
}

func TestNormalizeProductValidation(t *testing.T) {
	cases := []domain.ProductInput{
		{Category: "A", UnitType: domain.UnitTypeUnit},
		{Name: "A", UnitType: domain.UnitTypeUnit},
		{Name: "A", Category: "B", UnitType: "crate"},
		{Name: "A", Category: "B", Price: d("-1")},
		{Name: "A", Category: "B", Quantity: -2},
		{Name: "A", Category: "B", ExpirationDate: "31/12/2026"},
	}
	for _, in := range cases {
		_, err := NormalizeProduct(nil, in, "x")
		assert.ErrorIs(t, err, ErrInvalidProduct, "input %+v", in)
	}
}

func water() domain.Product {
	return domain.Product{ID: "2", Name: "Agua", Stock: 240, UnitType: domain.UnitTypePackage, UnitsPerPackage: 12, ExpirationDate: "2026-06-01"}
}

func TestPlanStockEntryMerges(t *testing.T) {
	got, created, units, err := PlanStockEntry(water(), domain.StockEntryRequest{Quantity: 3}, "new")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 36, units)
	assert.Equal(t, 276, got.Stock)
	assert.Equal(t, "2", got.ID)
	assert.Equal(t, "2026-06-01", got.ExpirationDate)
}

func TestPlanStockEntryMergeTakesNewDate(t *testing.T) {
	got, created, _, err := PlanStockEntry(water(), domain.StockEntryRequest{Quantity: 1, ExpirationDate: "2026-09-01"}, "new")
	require.NoError(t, err)
	assert.False(t, created, "new batch was not requested")
	assert.Equal(t, "2026-09-01", got.ExpirationDate)
	assert.Equal(t, 252, got.Stock)
}

func TestPlanStockEntryCreatesBatch(t *testing.T) {
	got, created, _, err := PlanStockEntry(water(), domain.StockEntryRequest{Quantity: 2, ExpirationDate: "2026-09-01", StartNewBatch: true}, "batch-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "batch-1", got.ID)
	assert.Equal(t, 24, got.Stock)
	assert.Equal(t, "2026-09-01", got.ExpirationDate)
}

func TestPlanStockEntrySameDateMerges(t *testing.T) {
	_, created, _, err := PlanStockEntry(water(), domain.StockEntryRequest{Quantity: 2, ExpirationDate: "2026-06-01", StartNewBatch: true}, "batch-1")
	require.NoError(t, err)
	assert.False(t, created)

	_, _, _, err = PlanStockEntry(water(), domain.StockEntryRequest{Quantity: 0}, "x")
	assert.ErrorIs(t, err, ErrInvalidProduct)
}

func TestSummarize(t *testing.T) {
	products := []domain.Product{
		{Name: "a", Price: d("2"), Stock: 10, Category: "Lácteos"},
		{Name: "b", Price: d("1.5"), Stock: 0, Category: "Bebidas"},
		{Name: "c", Price: d("3"), Stock: 20, Category: "Bebidas"},
	}
	s := Summarize(products)
	assert.Equal(t, 30, s.TotalUnits)
	assert.True(t, s.InventoryValue.Equal(d("80")))
	assert.Equal(t, 1, s.LowStock)
	assert.Equal(t, 1, s.OutOfStock)
	assert.Equal(t, []string{"Bebidas", "Lácteos"}, s.Categories)
}

func TestFilter(t *testing.T) {
	products := []domain.Product{
		{ID: "1", Name: "Pan Blanco", Price: d("35"), Stock: 30, Category: "Panadería"},
		{ID: "2", Name: "Agua Purificada", Price: d("8"), Stock: 240, Category: "Bebidas", Barcode: "7501"},
		{ID: "3", Name: "Café Molido", Price: d("60"), Stock: 5, Category: "Bebidas"},
	}

	got := Filter(products, domain.ProductQuery{Search: "cafe"})
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)

	got = Filter(products, domain.ProductQuery{Search: "7501"})
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	got = Filter(products, domain.ProductQuery{Category: "Bebidas", SortBy: SortByStock})
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)

	got = Filter(products, domain.ProductQuery{SortBy: SortByPrice})
	assert.Equal(t, "3", got[0].ID)

	got = Filter(products, domain.ProductQuery{Category: "all"})
	assert.Equal(t, []string{"2", "3", "1"}, []string{got[0].ID, got[1].ID, got[2].ID})
}
