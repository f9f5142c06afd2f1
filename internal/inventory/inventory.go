// Package inventory converts entered quantities to base units and validates
// catalog records.
package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lafavorita/backend/internal/domain"
)

const (
	LowStockThreshold = 20
	dateLayout        = "2006-01-02"
)

var ErrInvalidProduct = errors.New("invalid product")

// BaseUnits converts qty of the given unit type to base units.
func BaseUnits(unitType domain.UnitType, qty int, unitsPerPackage int) int {
	if unitType == domain.UnitTypeUnit || unitsPerPackage <= 0 {
		return qty
	}
	return qty * unitsPerPackage
}

// NormalizeProduct validates input and builds the record to store. existing is
// nil on create; on update the promotion state of existing is carried over.
func NormalizeProduct(existing *domain.Product, input domain.ProductInput, id string) (domain.Product, error) {
	name := strings.TrimSpace(input.Name)
	category := strings.TrimSpace(input.Category)
	unitType := input.UnitType
	if unitType == "" {
		unitType = domain.UnitTypeUnit
	}

	switch {
	case name == "":
		return domain.Product{}, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case category == "":
		return domain.Product{}, fmt.Errorf("%w: category is required", ErrInvalidProduct)
	case !unitType.Valid():
		return domain.Product{}, fmt.Errorf("%w: unknown unit type %q", ErrInvalidProduct, input.UnitType)
	case input.CostPrice.IsNegative() || input.Price.IsNegative():
		return domain.Product{}, fmt.Errorf("%w: prices must not be negative", ErrInvalidProduct)
	case input.Quantity < 0:
		return domain.Product{}, fmt.Errorf("%w: quantity must not be negative", ErrInvalidProduct)
	}
	if input.ExpirationDate != "" {
		if _, err := time.Parse(dateLayout, input.ExpirationDate); err != nil {
			return domain.Product{}, fmt.Errorf("%w: expiration date must be YYYY-MM-DD", ErrInvalidProduct)
		}
	}

	upp := 0
	if unitType != domain.UnitTypeUnit {
		upp = input.UnitsPerPackage
		if upp < 1 {
			upp = 1
		}
	}

	product := domain.Product{
		ID:              id,
		Name:            name,
		CostPrice:       input.CostPrice,
		Price:           input.Price,
		Stock:           BaseUnits(unitType, input.Quantity, upp),
		Category:        category,
		Barcode:         strings.TrimSpace(input.Barcode),
		UnitType:        unitType,
		UnitsPerPackage: upp,
		ExpirationDate:  input.ExpirationDate,
	}
	if unitType != domain.UnitTypeUnit && input.PriceWholesale != nil && input.PriceWholesale.GreaterThan(decimal.Zero) {
		wholesale := *input.PriceWholesale
		product.PriceWholesale = &wholesale
	}
	if existing != nil {
		product.IsOnSale = existing.IsOnSale
		if existing.OriginalPrice != nil {
			original := *existing.OriginalPrice
			product.OriginalPrice = &original
		}
	}
	return product, nil
}

// PlanStockEntry returns the product to write after receiving req.Quantity
// containers (or units) of p. A separate batch record is created only when
// req.StartNewBatch is set and a different expiration date was given;
// otherwise the stock merges into p.
func PlanStockEntry(p domain.Product, req domain.StockEntryRequest, newID string) (domain.Product, bool, int, error) {
	if req.Quantity <= 0 {
		return domain.Product{}, false, 0, fmt.Errorf("%w: quantity must be positive", ErrInvalidProduct)
	}
	if req.ExpirationDate != "" {
		if _, err := time.Parse(dateLayout, req.ExpirationDate); err != nil {
			return domain.Product{}, false, 0, fmt.Errorf("%w: expiration date must be YYYY-MM-DD", ErrInvalidProduct)
		}
	}

	units := BaseUnits(p.UnitType, req.Quantity, p.Multiplier())

	if req.StartNewBatch && req.ExpirationDate != "" && req.ExpirationDate != p.ExpirationDate {
		batch := p.Clone()
		batch.ID = newID
		batch.Stock = units
		batch.ExpirationDate = req.ExpirationDate
		return batch, true, units, nil
	}

	merged := p.Clone()
	merged.Stock += units
	if req.ExpirationDate != "" {
		merged.ExpirationDate = req.ExpirationDate
	}
	return merged, false, units, nil
}
