package service

import (
	"context"
	"fmt"

	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/promo"
)

func (s *Service) PromotionsOverview(ctx context.Context) (domain.PromotionsOverview, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.PromotionsOverview{}, err
	}
	return promo.Classify(products, s.now()), nil
}

// ApplyDiscount marks a product down. A below-cost result is only committed
// when the request confirms it; otherwise the *promo.BelowCostError is
// returned for the caller to show.
func (s *Service) ApplyDiscount(ctx context.Context, id string, req domain.DiscountRequest) (domain.DiscountResult, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.DiscountResult{}, err
	}

	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.DiscountResult{}, err
	}
	result, err := promo.ApplyDiscount(*product, req.Percent, req.ConfirmBelowCost)
	if err != nil {
		return domain.DiscountResult{}, err
	}
	saved, err := s.repo.UpdateProduct(ctx, result.Product)
	if err != nil {
		return domain.DiscountResult{}, err
	}
	result.Product = *saved

	s.logAudit(ctx, "discount_apply", "product", saved.ID, fmt.Sprintf("percent=%.2f,price=%s,below_cost=%t", req.Percent, saved.Price, result.BelowCost))
	return result, nil
}

func (s *Service) RemoveDiscount(ctx context.Context, id string) (domain.Product, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Product{}, err
	}

	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	saved, err := s.repo.UpdateProduct(ctx, promo.RemoveDiscount(*product))
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "discount_remove", "product", saved.ID, fmt.Sprintf("price=%s", saved.Price))
	return *saved, nil
}
