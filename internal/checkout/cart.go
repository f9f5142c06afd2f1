// Package checkout prices an open cart and turns it into a sale.
//
// Stock guards here are silent: an add or increment that would exceed the
// product's stock leaves the cart unchanged and reports false.
package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/money"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInsufficientPayment = errors.New("insufficient payment")
)

// PaymentError reports how much is still owed.
type PaymentError struct {
	Total    decimal.Decimal
	Tendered decimal.Decimal
	Missing  decimal.Decimal
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("missing %s to complete the payment", money.Display(e.Missing))
}

func (e *PaymentError) Unwrap() error {
	return ErrInsufficientPayment
}

type Cart struct {
	ID        string            `json:"id"`
	Operator  string            `json:"operator"`
	Lines     []domain.CartLine `json:"lines"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func New(id string, operator string, now time.Time) *Cart {
	return &Cart{ID: id, Operator: operator, Lines: []domain.CartLine{}, UpdatedAt: now}
}

// AddLine puts one unit (or one container when sellByPackage) of product in the
// cart, merging with an existing line for the same product and mode.
func (c *Cart) AddLine(product domain.Product, sellByPackage bool) bool {
	sellByPackage = sellByPackage && product.UnitType != domain.UnitTypeUnit
	per := unitsPerLine(product, sellByPackage)

	if idx := c.find(product.ID, sellByPackage); idx >= 0 {
		line := &c.Lines[idx]
		if (line.Quantity+1)*per > product.Stock {
			return false
		}
		line.Quantity++
		line.Product = product.Clone()
		return true
	}

	if per > product.Stock {
		return false
	}
	c.Lines = append(c.Lines, domain.CartLine{
		Product:       product.Clone(),
		Quantity:      1,
		SellByPackage: sellByPackage,
	})
	return true
}

// AdjustQuantity changes a line's quantity by delta. A result of zero or less
// removes the line.
func (c *Cart) AdjustQuantity(productID string, sellByPackage bool, delta int) bool {
	idx := c.find(productID, sellByPackage)
	if idx < 0 {
		return false
	}
	line := c.Lines[idx]
	qty := line.Quantity + delta
	if qty <= 0 {
		c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
		return true
	}
	if qty*unitsPerLine(line.Product, line.SellByPackage) > line.Product.Stock {
		return false
	}
	c.Lines[idx].Quantity = qty
	return true
}

// SetLineDiscount sets the line's percent discount, clamped to [0, 100].
func (c *Cart) SetLineDiscount(productID string, sellByPackage bool, pct float64) bool {
	idx := c.find(productID, sellByPackage)
	if idx < 0 {
		return false
	}
	c.Lines[idx].Discount = clampPercent(pct)
	return true
}

func (c *Cart) RemoveLine(productID string, sellByPackage bool) bool {
	idx := c.find(productID, sellByPackage)
	if idx < 0 {
		return false
	}
	c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	return true
}

// Refresh replaces each line's product snapshot with the current catalog
// record. Lines whose product no longer exists are dropped.
func (c *Cart) Refresh(current map[string]domain.Product) {
	kept := c.Lines[:0]
	for _, line := range c.Lines {
		product, ok := current[line.Product.ID]
		if !ok {
			continue
		}
		line.Product = product.Clone()
		kept = append(kept, line)
	}
	c.Lines = kept
}

func (c *Cart) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(LineTotal(line))
	}
	return total
}

// BaseUnitsByProduct sums the base units each product contributes across lines.
func (c *Cart) BaseUnitsByProduct() map[string]int {
	out := make(map[string]int, len(c.Lines))
	for _, line := range c.Lines {
		out[line.Product.ID] += line.Quantity * unitsPerLine(line.Product, line.SellByPackage)
	}
	return out
}

// Plan validates payment and builds the sale record plus the stock decrements
// it implies. Nothing is mutated.
func (c *Cart) Plan(tendered decimal.Decimal, saleID string, now time.Time) (domain.Sale, map[string]int, error) {
	if len(c.Lines) == 0 {
		return domain.Sale{}, nil, ErrEmptyCart
	}

	total := c.GrandTotal()
	if tendered.LessThan(total) {
		return domain.Sale{}, nil, &PaymentError{
			Total:    total,
			Tendered: tendered,
			Missing:  total.Sub(tendered),
		}
	}

	items := make([]domain.SaleLine, 0, len(c.Lines))
	for _, line := range c.Lines {
		items = append(items, domain.SaleLine{
			Product:       line.Product.Clone(),
			Quantity:      line.Quantity * unitsPerLine(line.Product, line.SellByPackage),
			Discount:      line.Discount,
			SellByPackage: line.SellByPackage,
		})
	}

	change := tendered.Sub(total)
	sale := domain.Sale{
		ID:            saleID,
		Date:          now,
		Items:         items,
		Total:         total,
		PaymentMethod: domain.PaymentCash,
		AmountPaid:    money.Ptr(tendered),
		Change:        money.Ptr(change),
		Operator:      c.Operator,
	}
	return sale, c.BaseUnitsByProduct(), nil
}

func (c *Cart) View() domain.CartView {
	lines := make([]domain.CartLineView, 0, len(c.Lines))
	for _, line := range c.Lines {
		lines = append(lines, domain.CartLineView{CartLine: line, LineTotal: LineTotal(line)})
	}
	return domain.CartView{
		ID:        c.ID,
		Operator:  c.Operator,
		Lines:     lines,
		Total:     c.GrandTotal(),
		UpdatedAt: c.UpdatedAt,
	}
}

// LineTotal prices one line: the container price (wholesale when set) or the
// unit price, less the line discount, times the line quantity.
func LineTotal(line domain.CartLine) decimal.Decimal {
	base := line.Product.Price
	if line.SellByPackage {
		if line.Product.PriceWholesale != nil && !line.Product.PriceWholesale.IsZero() {
			base = *line.Product.PriceWholesale
		} else {
			base = line.Product.Price.Mul(decimal.NewFromInt(int64(line.Product.Multiplier())))
		}
	}
	return money.ApplyPercentOff(base, line.Discount).Mul(decimal.NewFromInt(int64(line.Quantity)))
}

func (c *Cart) find(productID string, sellByPackage bool) int {
	for i, line := range c.Lines {
		if line.Product.ID == productID && line.SellByPackage == sellByPackage {
			return i
		}
	}
	return -1
}

func unitsPerLine(product domain.Product, sellByPackage bool) int {
	if sellByPackage {
		return product.Multiplier()
	}
	return 1
}

func clampPercent(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
