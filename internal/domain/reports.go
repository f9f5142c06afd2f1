package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductPerformance struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Quantity     int             `json:"quantity"`
	UnitsSold    int             `json:"unitsSold"`
	PackagesSold int             `json:"packagesSold"`
	Revenue      decimal.Decimal `json:"revenue"`
	Profit       decimal.Decimal `json:"profit"`
	Margin       decimal.Decimal `json:"margin"`
}

type HourlySales struct {
	Hour  int             `json:"hour"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type SalesReport struct {
	Range        string               `json:"range"`
	From         *time.Time           `json:"from,omitempty"`
	TotalRevenue decimal.Decimal      `json:"totalRevenue"`
	TotalProfit  decimal.Decimal      `json:"totalProfit"`
	SaleCount    int                  `json:"saleCount"`
	AverageSale  decimal.Decimal      `json:"averageSale"`
	UnitsSold    int                  `json:"unitsSold"`
	Products     []ProductPerformance `json:"products"`
	TopByMargin  []ProductPerformance `json:"topByMargin"`
	ByHour       []HourlySales        `json:"byHour"`
}

type PaymentTotal struct {
	Method string          `json:"method"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

type CashDrawerSummary struct {
	Date         string          `json:"date"`
	TodaySales   []Sale          `json:"todaySales"`
	TodayCount   int             `json:"todayCount"`
	TodayTotal   decimal.Decimal `json:"todayTotal"`
	ByPayment    []PaymentTotal  `json:"byPayment"`
	AllTimeCount int             `json:"allTimeCount"`
	AllTimeTotal decimal.Decimal `json:"allTimeTotal"`
}
