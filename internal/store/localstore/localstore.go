// Package localstore keeps each collection as one JSON array under a fixed
// key in a key/value backend, the same layout the browser build wrote to
// local storage. Backups from either side are interchangeable.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/store"
)

const (
	KeyProducts    = "laFavorita_products"
	KeySales       = "laFavorita_sales"
	KeyUsers       = "laFavorita_users"
	KeyInitialized = "laFavorita_initialized"
)

// KV is the minimal backend contract.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// SetMany writes every entry in values as one unit.
	SetMany(ctx context.Context, values map[string][]byte) error
}

// Store serializes writers in-process. Separate processes sharing a backend
// are last-writer-wins.
type Store struct {
	mu  sync.Mutex
	kv  KV
	log zerolog.Logger
}

// Open wraps kv, seeding the default data set on first use.
func Open(ctx context.Context, kv KV, log zerolog.Logger) (*Store, error) {
	s := &Store{kv: kv, log: log.With().Str("component", "localstore").Logger()}

	_, initialized, err := kv.Get(ctx, KeyInitialized)
	if err != nil {
		return nil, fmt.Errorf("read init marker: %w", err)
	}
	if !initialized {
		s.log.Info().Msg("first run, seeding default data")
		if err := s.write(ctx, store.DefaultBackup(), true); err != nil {
			return nil, fmt.Errorf("seed defaults: %w", err)
		}
	}
	return s, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readOrDefault(ctx, s, KeyProducts, store.DefaultProducts), nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := readOrDefault(ctx, s, KeyProducts, store.DefaultProducts)
	idx := indexProduct(products, id)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	return &products[idx], nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.ID) == "" || strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.products(ctx)
	if err != nil {
		return nil, err
	}
	if indexProduct(products, product.ID) >= 0 {
		return nil, store.ErrDuplicate
	}
	products = append(products, product.Clone())
	if err := s.write(ctx, domain.Backup{Products: products}, false); err != nil {
		return nil, err
	}
	out := product.Clone()
	return &out, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.products(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexProduct(products, product.ID)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	products[idx] = product.Clone()
	if err := s.write(ctx, domain.Backup{Products: products}, false); err != nil {
		return nil, err
	}
	out := product.Clone()
	return &out, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.products(ctx)
	if err != nil {
		return err
	}
	idx := indexProduct(products, id)
	if idx < 0 {
		return store.ErrNotFound
	}
	products = slices.Delete(products, idx, idx+1)
	return s.write(ctx, domain.Backup{Products: products}, false)
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readOrDefault(ctx, s, KeySales, noSales), nil
}

func (s *Store) CommitSale(ctx context.Context, sale domain.Sale, decrements map[string]int) error {
	if sale.ID == "" || len(sale.Items) == 0 {
		return store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.products(ctx)
	if err != nil {
		return err
	}
	sales, err := s.sales(ctx)
	if err != nil {
		return err
	}
	stock := make(map[string]int, len(products))
	for _, p := range products {
		stock[p.ID] = p.Stock
	}
	if err := store.ValidateDecrements(stock, decrements); err != nil {
		return err
	}
	for i := range products {
		products[i].Stock -= decrements[products[i].ID]
	}
	sales = append(sales, sale.Clone())

	return s.write(ctx, domain.Backup{Products: products, Sales: sales}, false)
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readOrDefault(ctx, s, KeyUsers, store.DefaultUsers), nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := readOrDefault(ctx, s, KeyUsers, store.DefaultUsers)
	idx := indexUser(users, username)
	if idx < 0 {
		return nil, store.ErrNotFound
	}
	return &users[idx], nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	if strings.TrimSpace(user.Username) == "" {
		return store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.users(ctx)
	if err != nil {
		return err
	}
	if indexUser(users, user.Username) >= 0 {
		return store.ErrDuplicate
	}
	users = append(users, user.Clone())
	return s.write(ctx, domain.Backup{Users: users}, false)
}

func (s *Store) UpdateUser(ctx context.Context, username string, user domain.User) error {
	if strings.TrimSpace(user.Username) == "" {
		return store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.users(ctx)
	if err != nil {
		return err
	}
	idx := indexUser(users, username)
	if idx < 0 {
		return store.ErrNotFound
	}
	if user.Username != username && indexUser(users, user.Username) >= 0 {
		return store.ErrDuplicate
	}
	users[idx] = user.Clone()
	return s.write(ctx, domain.Backup{Users: users}, false)
}

func (s *Store) DeleteUser(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.users(ctx)
	if err != nil {
		return err
	}
	idx := indexUser(users, username)
	if idx < 0 {
		return store.ErrNotFound
	}
	users = slices.Delete(users, idx, idx+1)
	return s.write(ctx, domain.Backup{Users: users}, false)
}

func (s *Store) Export(ctx context.Context) (domain.Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.products(ctx)
	if err != nil {
		return domain.Backup{}, err
	}
	sales, err := s.sales(ctx)
	if err != nil {
		return domain.Backup{}, err
	}
	users, err := s.users(ctx)
	if err != nil {
		return domain.Backup{}, err
	}
	return domain.Backup{Products: products, Sales: sales, Users: users}, nil
}

func (s *Store) Import(ctx context.Context, doc domain.Backup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.Products != nil {
		doc.Products = lastWins(doc.Products, func(p domain.Product) string { return p.ID })
	}
	if doc.Users != nil {
		doc.Users = lastWins(doc.Users, func(u domain.User) string { return u.Username })
	}
	return s.write(ctx, doc, false)
}

func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ctx, store.DefaultBackup(), true)
}

func (s *Store) products(ctx context.Context) ([]domain.Product, error) {
	return readCollection(ctx, s, KeyProducts, store.DefaultProducts)
}

func (s *Store) sales(ctx context.Context) ([]domain.Sale, error) {
	return readCollection(ctx, s, KeySales, noSales)
}

func (s *Store) users(ctx context.Context) ([]domain.User, error) {
	return readCollection(ctx, s, KeyUsers, store.DefaultUsers)
}

func noSales() []domain.Sale { return []domain.Sale{} }

// readCollection decodes key. A missing or corrupt value yields the default
// collection; a backend error is returned so that writers never persist
// defaults over data they could not read.
func readCollection[T any](ctx context.Context, s *Store, key string, fallback func() []T) ([]T, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return fallback(), nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("corrupt value, using defaults")
		return fallback(), nil
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// readOrDefault serves defaults to readers when the backend is unreachable.
func readOrDefault[T any](ctx context.Context, s *Store, key string, fallback func() []T) []T {
	out, err := readCollection(ctx, s, key, fallback)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("read failed, serving defaults")
		return fallback()
	}
	return out
}

// lastWins drops duplicate keys, keeping the first position and the last value.
func lastWins[T any](items []T, key func(T) string) []T {
	pos := make(map[string]int, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if i, seen := pos[k]; seen {
			out[i] = item
			continue
		}
		pos[k] = len(out)
		out = append(out, item)
	}
	return out
}

// write stores each non-nil collection of doc in a single backend call.
func (s *Store) write(ctx context.Context, doc domain.Backup, markInitialized bool) error {
	values := make(map[string][]byte, 4)
	if doc.Products != nil {
		raw, err := json.Marshal(doc.Products)
		if err != nil {
			return err
		}
		values[KeyProducts] = raw
	}
	if doc.Sales != nil {
		raw, err := json.Marshal(doc.Sales)
		if err != nil {
			return err
		}
		values[KeySales] = raw
	}
	if doc.Users != nil {
		raw, err := json.Marshal(doc.Users)
		if err != nil {
			return err
		}
		values[KeyUsers] = raw
	}
	if markInitialized {
		values[KeyInitialized] = []byte("true")
	}
	if len(values) == 0 {
		return nil
	}
	if err := s.kv.SetMany(ctx, values); err != nil {
		return fmt.Errorf("write %d keys: %w", len(values), err)
	}
	return nil
}

func indexProduct(products []domain.Product, id string) int {
	return slices.IndexFunc(products, func(p domain.Product) bool { return p.ID == id })
}

func indexUser(users []domain.User, username string) int {
	return slices.IndexFunc(users, func(u domain.User) bool { return u.Username == username })
}
