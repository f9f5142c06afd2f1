package report

import (
	"time"

	"github.com/shopspring/decimal"

	"lafavorita/backend/internal/domain"
)

var paymentMethods = []string{domain.PaymentCash, domain.PaymentCard, domain.PaymentTransfer}

// CashDrawer is the end-of-day reconciliation: today's sales by local calendar
// date with per-method totals, plus all-time figures.
func CashDrawer(sales []domain.Sale, now time.Time, loc *time.Location) domain.CashDrawerSummary {
	today := now.In(loc).Format("2006-01-02")

	summary := domain.CashDrawerSummary{
		Date:         today,
		TodaySales:   []domain.Sale{},
		TodayTotal:   decimal.Zero,
		AllTimeCount: len(sales),
		AllTimeTotal: decimal.Zero,
	}
	byMethod := make(map[string]*domain.PaymentTotal, len(paymentMethods))
	for _, method := range paymentMethods {
		byMethod[method] = &domain.PaymentTotal{Method: method, Total: decimal.Zero}
	}

	for _, sale := range sales {
		summary.AllTimeTotal = summary.AllTimeTotal.Add(sale.Total)
		if sale.Date.In(loc).Format("2006-01-02") != today {
			continue
		}
		summary.TodaySales = append(summary.TodaySales, sale.Clone())
		summary.TodayCount++
		summary.TodayTotal = summary.TodayTotal.Add(sale.Total)
		if total, ok := byMethod[sale.PaymentMethod]; ok {
			total.Count++
			total.Total = total.Total.Add(sale.Total)
		}
	}

	summary.ByPayment = make([]domain.PaymentTotal, 0, len(paymentMethods))
	for _, method := range paymentMethods {
		summary.ByPayment = append(summary.ByPayment, *byMethod[method])
	}
	return summary
}
