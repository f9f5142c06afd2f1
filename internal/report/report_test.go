package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lafavorita/backend/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func cola(price string) domain.Product {
	return domain.Product{ID: "1", Name: "Coca-Cola 600ml", CostPrice: d("10"), Price: d(price), Category: "Bebidas", UnitType: domain.UnitTypeUnit}
}

func water() domain.Product {
	return domain.Product{ID: "2", Name: "Agua Purificada", CostPrice: d("60"), Price: d("8"), Category: "Bebidas", UnitType: domain.UnitTypePackage, UnitsPerPackage: 12}
}

func sale(id string, at time.Time, total string, method string, items ...domain.SaleLine) domain.Sale {
	return domain.Sale{ID: id, Date: at, Total: d(total), PaymentMethod: method, Items: items}
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("")
	require.NoError(t, err)
	assert.Equal(t, RangeToday, r)

	r, err = ParseRange("Week")
	require.NoError(t, err)
	assert.Equal(t, RangeWeek, r)

	_, err = ParseRange("year")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestStartAnchorsAtLocalMidnight(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	now := time.Date(2026, 3, 31, 2, 0, 0, 0, time.UTC) // 2026-03-30 20:00 local

	from, ok := Start(RangeToday, now, loc)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 30, 0, 0, 0, 0, loc), from)

	from, _ = Start(RangeWeek, now, loc)
	assert.Equal(t, time.Date(2026, 3, 23, 0, 0, 0, 0, loc), from)

	from, _ = Start(RangeMonth, now, loc)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, loc), from, "February 30 normalizes forward")

	_, ok = Start(RangeAll, now, loc)
	assert.False(t, ok)
}

func TestRollupWeightedMarginIsRunningAverage(t *testing.T) {
	at := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	sales := []domain.Sale{
		sale("s1", at, "30", domain.PaymentCash, domain.SaleLine{Product: cola("15"), Quantity: 2}),
		sale("s2", at, "36", domain.PaymentCash, domain.SaleLine{Product: cola("18"), Quantity: 2}),
	}

	rows := Rollup(sales)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, 4, row.Quantity)
	assert.True(t, row.Margin.Equal(d("6")), "got %s, simple average would be 6.5", row.Margin)
	assert.True(t, row.Revenue.Equal(d("66")))
	assert.True(t, row.Profit.Equal(d("26")))
	assert.Equal(t, 4, row.UnitsSold)
}

func TestLineMarginPackageVersusUnit(t *testing.T) {
	byUnit := domain.SaleLine{Product: water(), Quantity: 12}
	m, profit := lineMargin(byUnit)
	assert.True(t, m.Equal(d("3")), "8 - 60/12")
	assert.True(t, profit.Equal(d("36")))

	byPackage := domain.SaleLine{Product: water(), Quantity: 12, SellByPackage: true}
	m, _ = lineMargin(byPackage)
	assert.True(t, m.Equal(d("-52")), "8 - 60")
}

func TestBuildHeadlineAndHours(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 6, 15, 18, 0, 0, 0, loc)
	sales := []domain.Sale{
		sale("old", now.AddDate(0, 0, -3), "100", domain.PaymentCash, domain.SaleLine{Product: cola("15"), Quantity: 1}),
		sale("a", time.Date(2026, 6, 15, 9, 10, 0, 0, loc), "30", domain.PaymentCash, domain.SaleLine{Product: cola("15"), Quantity: 2}),
		sale("b", time.Date(2026, 6, 15, 9, 50, 0, 0, loc), "96", domain.PaymentCash, domain.SaleLine{Product: water(), Quantity: 12}),
		sale("c", time.Date(2026, 6, 15, 13, 0, 0, 0, loc), "15", domain.PaymentCash, domain.SaleLine{Product: cola("15"), Quantity: 1}),
	}

	rep := Build(sales, RangeToday, now, loc)
	assert.Equal(t, 3, rep.SaleCount)
	assert.True(t, rep.TotalRevenue.Equal(d("141")))
	assert.True(t, rep.AverageSale.Equal(d("47")))
	assert.True(t, rep.TotalProfit.Equal(d("51")), "5*2 + 3*12 + 5*1")
	assert.Equal(t, 15, rep.UnitsSold)

	require.Len(t, rep.ByHour, 2)
	assert.Equal(t, 9, rep.ByHour[0].Hour)
	assert.Equal(t, 2, rep.ByHour[0].Count)
	assert.Equal(t, 13, rep.ByHour[1].Hour)

	require.Len(t, rep.Products, 2)
	assert.Equal(t, "2", rep.Products[0].ProductID, "96 revenue beats 45")
	assert.Equal(t, "1", rep.TopByMargin[0].ProductID)

	all := Build(sales, RangeAll, now, loc)
	assert.Equal(t, 4, all.SaleCount)
	assert.Nil(t, all.From)
}

func TestBuildEmpty(t *testing.T) {
	rep := Build(nil, RangeWeek, time.Now(), time.UTC)
	assert.Zero(t, rep.SaleCount)
	assert.True(t, rep.AverageSale.IsZero())
	assert.Empty(t, rep.ByHour)
}

func TestCashDrawer(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	now := time.Date(2026, 6, 15, 20, 0, 0, 0, loc)
	sales := []domain.Sale{
		sale("y", time.Date(2026, 6, 14, 23, 30, 0, 0, loc), "10", domain.PaymentCash),
		sale("a", time.Date(2026, 6, 15, 8, 0, 0, 0, loc), "20", domain.PaymentCash),
		sale("b", time.Date(2026, 6, 16, 1, 0, 0, 0, time.UTC), "5", domain.PaymentCard), // 19:00 local
		sale("c", time.Date(2026, 6, 15, 12, 0, 0, 0, loc), "7.5", domain.PaymentTransfer),
	}

	got := CashDrawer(sales, now, loc)
	assert.Equal(t, "2026-06-15", got.Date)
	assert.Equal(t, 3, got.TodayCount)
	assert.True(t, got.TodayTotal.Equal(d("32.5")))
	assert.Equal(t, 4, got.AllTimeCount)
	assert.True(t, got.AllTimeTotal.Equal(d("42.5")))

	require.Len(t, got.ByPayment, 3)
	assert.Equal(t, domain.PaymentCash, got.ByPayment[0].Method)
	assert.True(t, got.ByPayment[0].Total.Equal(d("20")))
	assert.True(t, got.ByPayment[1].Total.Equal(d("5")))
	assert.True(t, got.ByPayment[2].Total.Equal(d("7.5")))
}
