package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"lafavorita/backend/internal/checkout"
	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/store"
	"lafavorita/backend/internal/xid"
)

var ErrCartNotFound = errors.New("cart not found or expired")

func (s *Service) OpenCart(ctx context.Context) (domain.CartView, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.CartView{}, err
	}

	cart := checkout.New(xid.Token(), actor.Username, s.now())
	if err := s.saveCart(ctx, cart); err != nil {
		return domain.CartView{}, err
	}
	return cart.View(), nil
}

func (s *Service) GetCart(ctx context.Context, id string) (domain.CartView, error) {
	cart, err := s.loadCart(ctx, id)
	if err != nil {
		return domain.CartView{}, err
	}
	return cart.View(), nil
}

// AddToCart adds one unit or container. Adding beyond available stock leaves
// the cart as it was.
func (s *Service) AddToCart(ctx context.Context, id string, req domain.CartLineRequest) (domain.CartView, error) {
	cart, err := s.loadCart(ctx, id)
	if err != nil {
		return domain.CartView{}, err
	}
	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.CartView{}, err
	}

	if cart.AddLine(*product, req.SellByPackage) {
		if err := s.saveCart(ctx, cart); err != nil {
			return domain.CartView{}, err
		}
	}
	return cart.View(), nil
}

// UpdateCartLine applies a quantity delta and/or a line discount.
func (s *Service) UpdateCartLine(ctx context.Context, id string, productID string, req domain.CartLineUpdate) (domain.CartView, error) {
	cart, err := s.loadCart(ctx, id)
	if err != nil {
		return domain.CartView{}, err
	}

	changed := false
	if req.Delta != nil {
		changed = cart.AdjustQuantity(productID, req.SellByPackage, *req.Delta) || changed
	}
	if req.Discount != nil {
		changed = cart.SetLineDiscount(productID, req.SellByPackage, *req.Discount) || changed
	}
	if changed {
		if err := s.saveCart(ctx, cart); err != nil {
			return domain.CartView{}, err
		}
	}
	return cart.View(), nil
}

func (s *Service) RemoveCartLine(ctx context.Context, id string, productID string, sellByPackage bool) (domain.CartView, error) {
	cart, err := s.loadCart(ctx, id)
	if err != nil {
		return domain.CartView{}, err
	}
	if cart.RemoveLine(productID, sellByPackage) {
		if err := s.saveCart(ctx, cart); err != nil {
			return domain.CartView{}, err
		}
	}
	return cart.View(), nil
}

func (s *Service) DiscardCart(ctx context.Context, id string) error {
	if _, err := s.loadCart(ctx, id); err != nil {
		return err
	}
	return s.carts.Delete(ctx, id)
}

// CompleteSale prices the cart against the current catalog, checks the
// tendered cash and commits the sale with its stock decrements in one step.
// On any failure the cart is kept and nothing is persisted.
func (s *Service) CompleteSale(ctx context.Context, id string, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	cart, ok, err := s.carts.Get(ctx, id)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	if !ok || !s.ownsCart(ctx, cart) {
		return domain.CheckoutResponse{}, ErrCartNotFound
	}

	catalog, err := s.catalogByID(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	for _, line := range cart.Lines {
		if _, exists := catalog[line.Product.ID]; !exists {
			return domain.CheckoutResponse{}, fmt.Errorf("%w: %s is no longer in the catalog", store.ErrNotFound, line.Product.Name)
		}
	}
	cart.Refresh(catalog)

	now := s.now()
	sale, decrements, err := cart.Plan(req.AmountPaid, xid.New("sale"), now)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	if err := s.repo.CommitSale(ctx, sale, decrements); err != nil {
		return domain.CheckoutResponse{}, err
	}

	if err := s.carts.Delete(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("cart", id).Msg("completed cart cleanup failed")
	}
	s.logAudit(ctx, "sale_complete", "sale", sale.ID, fmt.Sprintf("total=%s,paid=%s,lines=%d", sale.Total, req.AmountPaid, len(sale.Items)))

	change := decimal.Zero
	if sale.Change != nil {
		change = *sale.Change
	}
	return domain.CheckoutResponse{Sale: sale, Change: change}, nil
}

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx)
}

func (s *Service) loadCart(ctx context.Context, id string) (*checkout.Cart, error) {
	cart, ok, err := s.carts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok || !s.ownsCart(ctx, cart) {
		return nil, ErrCartNotFound
	}
	catalog, err := s.catalogByID(ctx)
	if err != nil {
		return nil, err
	}
	cart.Refresh(catalog)
	return cart, nil
}

// ownsCart lets the operator who opened a cart, or any admin, use it.
func (s *Service) ownsCart(ctx context.Context, cart *checkout.Cart) bool {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return false
	}
	return actor.Username == cart.Operator || actor.Role == domain.RoleAdmin
}

func (s *Service) saveCart(ctx context.Context, cart *checkout.Cart) error {
	cart.UpdatedAt = s.now()
	return s.carts.Set(ctx, cart.ID, cart, s.cartTTL)
}

func (s *Service) catalogByID(ctx context.Context) (map[string]domain.Product, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}
