package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	Name        string `json:"name"`
	ExpiresAt   string `json:"expiresAt"`
}

// ProductInput is the add/edit form. Quantity is entered in the product's own
// unit type and converted to base units on save.
type ProductInput struct {
	Name            string           `json:"name"`
	CostPrice       decimal.Decimal  `json:"costPrice"`
	Price           decimal.Decimal  `json:"price"`
	PriceWholesale  *decimal.Decimal `json:"priceWholesale,omitempty"`
	Quantity        int              `json:"quantity"`
	Category        string           `json:"category"`
	Barcode         string           `json:"barcode,omitempty"`
	UnitType        UnitType         `json:"unitType"`
	UnitsPerPackage int              `json:"unitsPerPackage,omitempty"`
	ExpirationDate  string           `json:"expirationDate,omitempty"`
}

type ProductQuery struct {
	Search   string
	Category string
	SortBy   string
}

type StockEntryRequest struct {
	Quantity       int    `json:"quantity"`
	ExpirationDate string `json:"expirationDate,omitempty"`
	StartNewBatch  bool   `json:"startNewBatch"`
}

type StockEntryResult struct {
	Product      Product `json:"product"`
	CreatedBatch bool    `json:"createdBatch"`
	AddedUnits   int     `json:"addedUnits"`
}

type InventorySummary struct {
	TotalProducts  int             `json:"totalProducts"`
	TotalUnits     int             `json:"totalUnits"`
	InventoryValue decimal.Decimal `json:"inventoryValue"`
	LowStock       int             `json:"lowStock"`
	OutOfStock     int             `json:"outOfStock"`
	Categories     []string        `json:"categories"`
}

type ImportResult struct {
	Created  int      `json:"created"`
	Skipped  int      `json:"skipped"`
	Products []string `json:"products"`
	Errors   []string `json:"errors,omitempty"`
}

type DiscountRequest struct {
	Percent          float64 `json:"percent"`
	ConfirmBelowCost bool    `json:"confirmBelowCost"`
}

type DiscountResult struct {
	Product     Product         `json:"product"`
	NewPrice    decimal.Decimal `json:"newPrice"`
	BelowCost   bool            `json:"belowCost"`
	LossPerUnit decimal.Decimal `json:"lossPerUnit,omitempty"`
}

type ExpiringProduct struct {
	Product Product `json:"product"`
	Days    *int    `json:"days,omitempty"`
	Badge   string  `json:"badge,omitempty"`
}

type PromotionsOverview struct {
	Expiring []ExpiringProduct `json:"expiring"`
	Expired  []ExpiringProduct `json:"expired"`
	OnSale   []ExpiringProduct `json:"onSale"`
}

type CartLineRequest struct {
	ProductID     string `json:"productId"`
	SellByPackage bool   `json:"sellByPackage"`
}

type CartLineUpdate struct {
	SellByPackage bool     `json:"sellByPackage"`
	Delta         *int     `json:"delta,omitempty"`
	Discount      *float64 `json:"discount,omitempty"`
}

type CheckoutRequest struct {
	AmountPaid decimal.Decimal `json:"amountPaid"`
}

type CartLineView struct {
	CartLine
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type CartView struct {
	ID        string          `json:"id"`
	Operator  string          `json:"operator"`
	Lines     []CartLineView  `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type CheckoutResponse struct {
	Sale   Sale            `json:"sale"`
	Change decimal.Decimal `json:"change"`
}

type EmployeeCreateRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
	Name            string `json:"name"`
}

type EmployeeUpdateRequest struct {
	Username          *string            `json:"username,omitempty"`
	Role              *string            `json:"role,omitempty"`
	Name              *string            `json:"name,omitempty"`
	Password          *string            `json:"password,omitempty"`
	ConfirmPassword   *string            `json:"confirmPassword,omitempty"`
	SecurityQuestions *SecurityQuestions `json:"securityQuestions,omitempty"`
}

// Employee is the public view of a user; credentials never leave the service.
type Employee struct {
	Username             string   `json:"username"`
	Role                 string   `json:"role"`
	Name                 string   `json:"name"`
	HasSecurityQuestions bool     `json:"hasSecurityQuestions"`
	Questions            []string `json:"questions,omitempty"`
}

type RecoveryStartRequest struct {
	Username string `json:"username"`
}

type RecoveryAnswersRequest struct {
	Answer1 string `json:"answer1"`
	Answer2 string `json:"answer2"`
	Answer3 string `json:"answer3"`
}

type RecoveryPasswordRequest struct {
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type RecoveryStep string

const (
	RecoveryStepUsername    RecoveryStep = "username"
	RecoveryStepQuestions   RecoveryStep = "questions"
	RecoveryStepNewPassword RecoveryStep = "newPassword"
	RecoveryStepDone        RecoveryStep = "done"
)

type RecoverySession struct {
	ID        string       `json:"id"`
	Step      RecoveryStep `json:"step"`
	Username  string       `json:"username"`
	Questions []string     `json:"questions,omitempty"`
	Answer1   string       `json:"answer1,omitempty"`
	Answer2   string       `json:"answer2,omitempty"`
	Answer3   string       `json:"answer3,omitempty"`
}
