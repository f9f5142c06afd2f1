package service

import (
	"context"
	"io"

	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/excel"
	"lafavorita/backend/internal/report"
)

func (s *Service) SalesReport(ctx context.Context, rawRange string) (domain.SalesReport, error) {
	r, err := report.ParseRange(rawRange)
	if err != nil {
		return domain.SalesReport{}, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.SalesReport{}, err
	}
	return report.Build(sales, r, s.now(), s.loc), nil
}

// WriteSalesWorkbook renders the sales report for rawRange as an xlsx file.
func (s *Service) WriteSalesWorkbook(ctx context.Context, rawRange string, w io.Writer) error {
	rep, err := s.SalesReport(ctx, rawRange)
	if err != nil {
		return err
	}
	return excel.WriteSalesReport(w, rep, s.loc)
}

func (s *Service) CashDrawer(ctx context.Context) (domain.CashDrawerSummary, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.CashDrawerSummary{}, err
	}
	return report.CashDrawer(sales, s.now(), s.loc), nil
}
