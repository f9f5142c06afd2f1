package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/store"
)

// Store keeps everything in process memory. Catalog and account order is
// insertion order, matching the persisted array layout.
type Store struct {
	mu           sync.RWMutex
	products     map[string]domain.Product
	productOrder []string
	sales        []domain.Sale
	users        map[string]domain.User
	userOrder    []string
}

func New() *Store {
	return &Store{
		products: make(map[string]domain.Product),
		users:    make(map[string]domain.User),
		sales:    make([]domain.Sale, 0, 64),
	}
}

// NewSeeded returns a store holding the default catalog and accounts.
func NewSeeded() *Store {
	s := New()
	s.load(store.DefaultBackup())
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		out = append(out, s.products[id].Clone())
	}
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := p.Clone()
	return &out, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.ID) == "" || strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrDuplicate
	}
	s.products[product.ID] = product.Clone()
	s.productOrder = append(s.productOrder, product.ID)

	out := product.Clone()
	return &out, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.products[product.ID] = product.Clone()

	out := product.Clone()
	return &out, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	s.productOrder = slices.DeleteFunc(s.productOrder, func(v string) bool { return v == id })
	return nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		out = append(out, sale.Clone())
	}
	return out, nil
}

func (s *Store) CommitSale(_ context.Context, sale domain.Sale, decrements map[string]int) error {
	if sale.ID == "" || len(sale.Items) == 0 {
		return store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stock := make(map[string]int, len(decrements))
	for id := range decrements {
		if p, ok := s.products[id]; ok {
			stock[id] = p.Stock
		}
	}
	if err := store.ValidateDecrements(stock, decrements); err != nil {
		return err
	}

	for id, qty := range decrements {
		p := s.products[id]
		p.Stock -= qty
		s.products[id] = p
	}
	s.sales = append(s.sales, sale.Clone())
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.User, 0, len(s.userOrder))
	for _, username := range s.userOrder {
		out = append(out, s.users[username].Clone())
	}
	return out, nil
}

func (s *Store) GetUser(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := u.Clone()
	return &out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.User) error {
	if strings.TrimSpace(user.Username) == "" {
		return store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return store.ErrDuplicate
	}
	s.users[user.Username] = user.Clone()
	s.userOrder = append(s.userOrder, user.Username)
	return nil
}

func (s *Store) UpdateUser(_ context.Context, username string, user domain.User) error {
	if strings.TrimSpace(user.Username) == "" {
		return store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		return store.ErrNotFound
	}
	if user.Username != username {
		if _, taken := s.users[user.Username]; taken {
			return store.ErrDuplicate
		}
		delete(s.users, username)
		idx := slices.Index(s.userOrder, username)
		s.userOrder[idx] = user.Username
	}
	s.users[user.Username] = user.Clone()
	return nil
}

func (s *Store) DeleteUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, username)
	s.userOrder = slices.DeleteFunc(s.userOrder, func(v string) bool { return v == username })
	return nil
}

func (s *Store) Export(ctx context.Context) (domain.Backup, error) {
	products, _ := s.ListProducts(ctx)
	sales, _ := s.ListSales(ctx)
	users, _ := s.ListUsers(ctx)
	return domain.Backup{Products: products, Sales: sales, Users: users}, nil
}

func (s *Store) Import(_ context.Context, doc domain.Backup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(doc)
	return nil
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(store.DefaultBackup())
	return nil
}

func (s *Store) load(doc domain.Backup) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(doc)
}

// apply replaces each collection present in doc. Caller holds the lock.
func (s *Store) apply(doc domain.Backup) {
	if doc.Products != nil {
		s.products = make(map[string]domain.Product, len(doc.Products))
		s.productOrder = make([]string, 0, len(doc.Products))
		for _, p := range doc.Products {
			if _, dup := s.products[p.ID]; !dup {
				s.productOrder = append(s.productOrder, p.ID)
			}
			s.products[p.ID] = p.Clone()
		}
	}
	if doc.Sales != nil {
		s.sales = make([]domain.Sale, 0, len(doc.Sales))
		for _, sale := range doc.Sales {
			s.sales = append(s.sales, sale.Clone())
		}
	}
	if doc.Users != nil {
		s.users = make(map[string]domain.User, len(doc.Users))
		s.userOrder = make([]string, 0, len(doc.Users))
		for _, u := range doc.Users {
			if _, dup := s.users[u.Username]; !dup {
				s.userOrder = append(s.userOrder, u.Username)
			}
			s.users[u.Username] = u.Clone()
		}
	}
}
