package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Persisted documents and API payloads carry money as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

const (
	PaymentCash     = "Efectivo"
	PaymentCard     = "Tarjeta"
	PaymentTransfer = "Transferencia"
)

type UnitType string

const (
	UnitTypeUnit    UnitType = "unit"
	UnitTypePackage UnitType = "package"
	UnitTypeBox     UnitType = "box"
)

func (u UnitType) Valid() bool {
	switch u {
	case UnitTypeUnit, UnitTypePackage, UnitTypeBox:
		return true
	}
	return false
}

// Product is a sellable item. Stock is always counted in base units.
type Product struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	CostPrice       decimal.Decimal  `json:"costPrice"`
	Price           decimal.Decimal  `json:"price"`
	PriceWholesale  *decimal.Decimal `json:"priceWholesale,omitempty"`
	Stock           int              `json:"stock"`
	Category        string           `json:"category"`
	Barcode         string           `json:"barcode,omitempty"`
	UnitType        UnitType         `json:"unitType"`
	UnitsPerPackage int              `json:"unitsPerPackage,omitempty"`
	ExpirationDate  string           `json:"expirationDate,omitempty"`
	IsOnSale        bool             `json:"isOnSale,omitempty"`
	OriginalPrice   *decimal.Decimal `json:"originalPrice,omitempty"`
}

// Multiplier is the number of base units in one container, 1 when absent.
func (p Product) Multiplier() int {
	if p.UnitsPerPackage <= 0 {
		return 1
	}
	return p.UnitsPerPackage
}

// Clone returns a copy that shares no pointers with p.
func (p Product) Clone() Product {
	out := p
	if p.PriceWholesale != nil {
		v := *p.PriceWholesale
		out.PriceWholesale = &v
	}
	if p.OriginalPrice != nil {
		v := *p.OriginalPrice
		out.OriginalPrice = &v
	}
	return out
}

// SaleLine snapshots the product as it was at sale time. Quantity is in base units.
type SaleLine struct {
	Product       Product `json:"product"`
	Quantity      int     `json:"quantity"`
	Discount      float64 `json:"discount"`
	SellByPackage bool    `json:"sellByPackage,omitempty"`
}

type Sale struct {
	ID            string           `json:"id"`
	Date          time.Time        `json:"date"`
	Items         []SaleLine       `json:"items"`
	Total         decimal.Decimal  `json:"total"`
	PaymentMethod string           `json:"paymentMethod"`
	AmountPaid    *decimal.Decimal `json:"amountPaid,omitempty"`
	Change        *decimal.Decimal `json:"change,omitempty"`
	Operator      string           `json:"operator,omitempty"`
}

func (s Sale) Clone() Sale {
	out := s
	out.Items = make([]SaleLine, len(s.Items))
	for i, item := range s.Items {
		item.Product = item.Product.Clone()
		out.Items[i] = item
	}
	if s.AmountPaid != nil {
		v := *s.AmountPaid
		out.AmountPaid = &v
	}
	if s.Change != nil {
		v := *s.Change
		out.Change = &v
	}
	return out
}

type SecurityQuestions struct {
	Question1 string `json:"question1"`
	Answer1   string `json:"answer1"`
	Question2 string `json:"question2"`
	Answer2   string `json:"answer2"`
	Question3 string `json:"question3"`
	Answer3   string `json:"answer3"`
}

func (q SecurityQuestions) Complete() bool {
	return q.Question1 != "" && q.Question2 != "" && q.Question3 != "" &&
		q.Answer1 != "" && q.Answer2 != "" && q.Answer3 != ""
}

type User struct {
	Username          string             `json:"username"`
	Password          string             `json:"password"`
	Role              string             `json:"role"`
	Name              string             `json:"name"`
	SecurityQuestions *SecurityQuestions `json:"securityQuestions,omitempty"`
}

func (u User) Clone() User {
	out := u
	if u.SecurityQuestions != nil {
		q := *u.SecurityQuestions
		out.SecurityQuestions = &q
	}
	return out
}

// Backup is the export/import document. A nil collection means the key was absent.
type Backup struct {
	Products   []Product `json:"products,omitempty"`
	Sales      []Sale    `json:"sales,omitempty"`
	Users      []User    `json:"users,omitempty"`
	ExportDate string    `json:"exportDate,omitempty"`
}

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

// CartLine is an open (not yet sold) cart entry. Quantity counts units or
// containers depending on SellByPackage.
type CartLine struct {
	Product       Product `json:"product"`
	Quantity      int     `json:"quantity"`
	SellByPackage bool    `json:"sellByPackage"`
	Discount      float64 `json:"discount"`
}
