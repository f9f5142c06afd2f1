// Package promo classifies products by expiration and applies or removes
// percentage markdowns.
package promo

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/money"
)

const (
	ExpiringWindowDays = 30
	dateLayout         = "2006-01-02"
	noExpirationRank   = 999
)

var (
	ErrInvalidPercent = errors.New("discount percent must be greater than 0 and at most 100")
	ErrBelowCost      = errors.New("discounted price is below cost")
)

// BelowCostError is returned when a markdown would sell under cost and the
// caller has not confirmed it.
type BelowCostError struct {
	Price       decimal.Decimal
	NewPrice    decimal.Decimal
	CostPrice   decimal.Decimal
	LossPerUnit decimal.Decimal
}

func (e *BelowCostError) Error() string {
	return fmt.Sprintf("new price %s is below cost %s, loss of %s per unit",
		money.Display(e.NewPrice), money.Display(e.CostPrice), money.Display(e.LossPerUnit))
}

func (e *BelowCostError) Unwrap() error {
	return ErrBelowCost
}

// DaysUntilExpiration returns whole days (rounded up) from now until the
// expiration date, read as UTC midnight. ok is false when there is no date.
func DaysUntilExpiration(date string, now time.Time) (int, bool) {
	if date == "" {
		return 0, false
	}
	exp, err := time.Parse(dateLayout, date)
	if err != nil {
		return 0, false
	}
	diff := exp.Sub(now)
	return int(math.Ceil(float64(diff) / float64(24*time.Hour))), true
}

// Badge is the urgency label shown next to an expiration.
func Badge(days int) string {
	switch {
	case days < 0:
		return "expired"
	case days <= 7:
		return "critical"
	case days <= 15:
		return "warning"
	case days <= ExpiringWindowDays:
		return "notice"
	}
	return ""
}

// Classify splits the catalog into expiring-soon, expired and on-sale lists.
// A product may appear in more than one list.
func Classify(products []domain.Product, now time.Time) domain.PromotionsOverview {
	entries := make([]domain.ExpiringProduct, 0, len(products))
	for _, p := range products {
		entry := domain.ExpiringProduct{Product: p.Clone()}
		if days, ok := DaysUntilExpiration(p.ExpirationDate, now); ok {
			entry.Days = &days
			entry.Badge = Badge(days)
		}
		entries = append(entries, entry)
	}
	slices.SortStableFunc(entries, func(a, b domain.ExpiringProduct) int {
		return rank(a) - rank(b)
	})

	overview := domain.PromotionsOverview{
		Expiring: []domain.ExpiringProduct{},
		Expired:  []domain.ExpiringProduct{},
		OnSale:   []domain.ExpiringProduct{},
	}
	for _, entry := range entries {
		if entry.Days != nil {
			days := *entry.Days
			if days >= 0 && days <= ExpiringWindowDays {
				overview.Expiring = append(overview.Expiring, entry)
			}
			if days < 0 {
				overview.Expired = append(overview.Expired, entry)
			}
		}
		if entry.Product.IsOnSale {
			overview.OnSale = append(overview.OnSale, entry)
		}
	}
	return overview
}

// ApplyDiscount marks product down by percent of its current price. When the
// result is under cost and confirmBelowCost is false nothing changes and a
// *BelowCostError is returned.
func ApplyDiscount(product domain.Product, percent float64, confirmBelowCost bool) (domain.DiscountResult, error) {
	if percent <= 0 || percent > 100 {
		return domain.DiscountResult{}, ErrInvalidPercent
	}

	newPrice := money.ApplyPercentOff(product.Price, percent)
	belowCost := newPrice.LessThan(product.CostPrice)
	if belowCost && !confirmBelowCost {
		return domain.DiscountResult{}, &BelowCostError{
			Price:       product.Price,
			NewPrice:    newPrice,
			CostPrice:   product.CostPrice,
			LossPerUnit: product.CostPrice.Sub(newPrice),
		}
	}

	updated := product.Clone()
	if !updated.IsOnSale || updated.OriginalPrice == nil {
		updated.OriginalPrice = money.Ptr(product.Price)
	}
	updated.Price = newPrice
	updated.IsOnSale = true

	result := domain.DiscountResult{Product: updated, NewPrice: newPrice, BelowCost: belowCost}
	if belowCost {
		result.LossPerUnit = product.CostPrice.Sub(newPrice)
	}
	return result, nil
}

// RemoveDiscount restores the pre-sale price and clears the sale flags.
func RemoveDiscount(product domain.Product) domain.Product {
	updated := product.Clone()
	if updated.OriginalPrice != nil {
		updated.Price = *updated.OriginalPrice
	}
	updated.OriginalPrice = nil
	updated.IsOnSale = false
	return updated
}

func rank(entry domain.ExpiringProduct) int {
	if entry.Days == nil {
		return noExpirationRank
	}
	return *entry.Days
}
