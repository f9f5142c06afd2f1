package inventory

import (
	"slices"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"lafavorita/backend/internal/domain"
)

const (
	SortByName  = "name"
	SortByPrice = "price"
	SortByStock = "stock"
)

func Summarize(products []domain.Product) domain.InventorySummary {
	summary := domain.InventorySummary{
		TotalProducts:  len(products),
		InventoryValue: decimal.Zero,
		Categories:     Categories(products),
	}
	for _, p := range products {
		summary.TotalUnits += p.Stock
		summary.InventoryValue = summary.InventoryValue.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Stock))))
		switch {
		case p.Stock <= 0:
			summary.OutOfStock++
		case p.Stock < LowStockThreshold:
			summary.LowStock++
		}
	}
	return summary
}

// Categories lists distinct categories in Spanish collation order.
func Categories(products []domain.Product) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	c := collate.New(language.Spanish, collate.IgnoreCase)
	c.SortStrings(out)
	return out
}

// Filter applies the catalog search box, category selector and sort order.
// Search ignores case and accents and matches name or barcode.
func Filter(products []domain.Product, q domain.ProductQuery) []domain.Product {
	needle := fold(q.Search)
	category := strings.TrimSpace(q.Category)
	if strings.EqualFold(category, "all") {
		category = ""
	}

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if category != "" && p.Category != category {
			continue
		}
		if needle != "" && !strings.Contains(fold(p.Name), needle) && !strings.Contains(p.Barcode, q.Search) {
			continue
		}
		out = append(out, p.Clone())
	}

	switch q.SortBy {
	case SortByPrice:
		slices.SortStableFunc(out, func(a, b domain.Product) int { return b.Price.Cmp(a.Price) })
	case SortByStock:
		slices.SortStableFunc(out, func(a, b domain.Product) int { return b.Stock - a.Stock })
	default:
		c := collate.New(language.Spanish, collate.IgnoreCase)
		slices.SortStableFunc(out, func(a, b domain.Product) int { return c.CompareString(a.Name, b.Name) })
	}
	return out
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
