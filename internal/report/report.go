// Package report derives sales metrics from the sales ledger. Everything here
// is read-only over its inputs.
package report

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lafavorita/backend/internal/domain"
)

type Range string

const (
	RangeToday Range = "today"
	RangeWeek  Range = "week"
	RangeMonth Range = "month"
	RangeAll   Range = "all"
)

var ErrInvalidRange = errors.New("invalid report range")

// ParseRange accepts today, week, month or all. Empty means today.
func ParseRange(raw string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(raw))); r {
	case "":
		return RangeToday, nil
	case RangeToday, RangeWeek, RangeMonth, RangeAll:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRange, raw)
}

// Start returns the inclusive lower bound for r, anchored at local midnight.
// ok is false for RangeAll.
func Start(r Range, now time.Time, loc *time.Location) (time.Time, bool) {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	switch r {
	case RangeToday:
		return midnight, true
	case RangeWeek:
		return midnight.AddDate(0, 0, -7), true
	case RangeMonth:
		return midnight.AddDate(0, -1, 0), true
	}
	return time.Time{}, false
}

func FilterSales(sales []domain.Sale, r Range, now time.Time, loc *time.Location) []domain.Sale {
	from, bounded := Start(r, now, loc)
	out := make([]domain.Sale, 0, len(sales))
	for _, sale := range sales {
		if bounded && sale.Date.Before(from) {
			continue
		}
		out = append(out, sale)
	}
	return out
}

// Build computes the full sales report for r.
func Build(sales []domain.Sale, r Range, now time.Time, loc *time.Location) domain.SalesReport {
	filtered := FilterSales(sales, r, now, loc)

	out := domain.SalesReport{
		Range:        string(r),
		TotalRevenue: decimal.Zero,
		TotalProfit:  decimal.Zero,
		AverageSale:  decimal.Zero,
		SaleCount:    len(filtered),
	}
	if from, ok := Start(r, now, loc); ok {
		out.From = &from
	}

	for _, sale := range filtered {
		out.TotalRevenue = out.TotalRevenue.Add(sale.Total)
		for _, item := range sale.Items {
			_, profit := lineMargin(item)
			out.TotalProfit = out.TotalProfit.Add(profit)
			out.UnitsSold += item.Quantity
		}
	}
	if out.SaleCount > 0 {
		out.AverageSale = out.TotalRevenue.Div(decimal.NewFromInt(int64(out.SaleCount)))
	}

	out.Products = Rollup(filtered)
	out.TopByMargin = slices.Clone(out.Products)
	slices.SortStableFunc(out.TopByMargin, func(a, b domain.ProductPerformance) int {
		return b.Margin.Cmp(a.Margin)
	})
	out.ByHour = ByHour(filtered, loc)
	return out
}

// Rollup aggregates sold lines per product, ordered by revenue descending.
//
// Margin is an order-dependent running average: the incoming quantity is
// added to the total before the old margin is weighted by it.
func Rollup(sales []domain.Sale) []domain.ProductPerformance {
	byID := make(map[string]*domain.ProductPerformance)
	order := make([]string, 0)

	for _, sale := range sales {
		for _, item := range sale.Items {
			p := item.Product
			margin, profit := lineMargin(item)
			qty := decimal.NewFromInt(int64(item.Quantity))
			revenue := p.Price.Mul(qty)

			existing, ok := byID[p.ID]
			if !ok {
				entry := &domain.ProductPerformance{
					ProductID: p.ID,
					Name:      p.Name,
					Category:  p.Category,
					Quantity:  item.Quantity,
					Revenue:   revenue,
					Profit:    profit,
					Margin:    margin,
				}
				if item.SellByPackage {
					entry.PackagesSold = item.Quantity
				} else {
					entry.UnitsSold = item.Quantity
				}
				byID[p.ID] = entry
				order = append(order, p.ID)
				continue
			}

			existing.Quantity += item.Quantity
			existing.Revenue = existing.Revenue.Add(revenue)
			existing.Profit = existing.Profit.Add(profit)
			weight := decimal.NewFromInt(int64(existing.Quantity))
			totalItems := weight.Add(qty)
			existing.Margin = existing.Margin.Mul(weight).Add(margin.Mul(qty)).Div(totalItems)
			if item.SellByPackage {
				existing.PackagesSold += item.Quantity
			} else {
				existing.UnitsSold += item.Quantity
			}
		}
	}

	out := make([]domain.ProductPerformance, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	slices.SortStableFunc(out, func(a, b domain.ProductPerformance) int {
		return b.Revenue.Cmp(a.Revenue)
	})
	return out
}

// ByHour counts sales per local hour of day, omitting empty hours.
func ByHour(sales []domain.Sale, loc *time.Location) []domain.HourlySales {
	var buckets [24]domain.HourlySales
	for h := range buckets {
		buckets[h] = domain.HourlySales{Hour: h, Total: decimal.Zero}
	}
	for _, sale := range sales {
		h := sale.Date.In(loc).Hour()
		buckets[h].Count++
		buckets[h].Total = buckets[h].Total.Add(sale.Total)
	}
	out := make([]domain.HourlySales, 0, 24)
	for _, b := range buckets {
		if b.Count > 0 {
			out = append(out, b)
		}
	}
	return out
}

// lineMargin returns the per-unit margin and the line profit. Package lines
// use the container cost, unit lines the per-unit cost.
func lineMargin(item domain.SaleLine) (decimal.Decimal, decimal.Decimal) {
	p := item.Product
	var margin decimal.Decimal
	if item.SellByPackage {
		margin = p.Price.Sub(p.CostPrice)
	} else {
		unitCost := p.CostPrice.Div(decimal.NewFromInt(int64(p.Multiplier())))
		margin = p.Price.Sub(unitCost)
	}
	return margin, margin.Mul(decimal.NewFromInt(int64(item.Quantity)))
}
