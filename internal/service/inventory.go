package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/excel"
	"lafavorita/backend/internal/inventory"
	"lafavorita/backend/internal/xid"
)

func (s *Service) ListProducts(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return inventory.Filter(products, q), nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (s *Service) CreateProduct(ctx context.Context, input domain.ProductInput) (domain.Product, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Product{}, err
	}

	product, err := inventory.NormalizeProduct(nil, input, xid.New("prod"))
	if err != nil {
		return domain.Product{}, err
	}
	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,stock=%d", created.Name, created.Stock))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, input domain.ProductInput) (domain.Product, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	product, err := inventory.NormalizeProduct(existing, input, existing.ID)
	if err != nil {
		return domain.Product{}, err
	}
	saved, err := s.repo.UpdateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("price=%s,stock=%d", saved.Price, saved.Stock))
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := requireActor(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "product_delete", "product", id, "")
	return nil
}

// AddStock receives new stock for a product, either merged into it or as a
// separate batch with its own expiration date.
func (s *Service) AddStock(ctx context.Context, id string, req domain.StockEntryRequest) (domain.StockEntryResult, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.StockEntryResult{}, err
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.StockEntryResult{}, err
	}
	planned, createdBatch, units, err := inventory.PlanStockEntry(*existing, req, xid.New("prod"))
	if err != nil {
		return domain.StockEntryResult{}, err
	}

	var saved *domain.Product
	if createdBatch {
		saved, err = s.repo.CreateProduct(ctx, planned)
	} else {
		saved, err = s.repo.UpdateProduct(ctx, planned)
	}
	if err != nil {
		return domain.StockEntryResult{}, err
	}

	s.logAudit(ctx, "stock_entry", "product", saved.ID, fmt.Sprintf("units=%d,batch=%t,expires=%s", units, createdBatch, saved.ExpirationDate))
	return domain.StockEntryResult{Product: *saved, CreatedBatch: createdBatch, AddedUnits: units}, nil
}

func (s *Service) InventorySummary(ctx context.Context) (domain.InventorySummary, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.InventorySummary{}, err
	}
	return inventory.Summarize(products), nil
}

// ImportCatalog creates one product per valid spreadsheet row. Rows that fail
// to parse or validate are skipped and reported.
func (s *Service) ImportCatalog(ctx context.Context, r io.Reader) (domain.ImportResult, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.ImportResult{}, err
	}

	rows, err := excel.ParseCatalog(r)
	if err != nil {
		return domain.ImportResult{}, err
	}

	result := domain.ImportResult{Products: []string{}}
	for _, row := range rows {
		if row.Err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, row.Err.Error())
			continue
		}
		product, err := inventory.NormalizeProduct(nil, row.Input, xid.New("prod"))
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", row.Line, err))
			continue
		}
		if _, err := s.repo.CreateProduct(ctx, product); err != nil {
			return result, fmt.Errorf("row %d: %w", row.Line, err)
		}
		result.Created++
		result.Products = append(result.Products, product.Name)
	}

	s.logAudit(ctx, "catalog_import", "product", "", fmt.Sprintf("created=%d,skipped=%d,names=%s", result.Created, result.Skipped, strings.Join(result.Products, "|")))
	return result, nil
}
