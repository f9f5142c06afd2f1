package localstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/store"
	"lafavorita/backend/internal/store/localstore/filekv"
	"lafavorita/backend/internal/store/storetest"
)

func openFileStore(t *testing.T, dir string) *Store {
	t.Helper()
	kv, err := filekv.New(dir)
	if err != nil {
		t.Fatalf("filekv: %v", err)
	}
	s, err := Open(context.Background(), kv, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		return openFileStore(t, t.TempDir())
	})
}

func TestFirstRunWritesInitMarker(t *testing.T) {
	dir := t.TempDir()
	openFileStore(t, dir)

	raw, err := os.ReadFile(filepath.Join(dir, KeyInitialized+".json"))
	if err != nil {
		t.Fatalf("expected init marker: %v", err)
	}
	if string(raw) != "true" {
		t.Fatalf("unexpected marker %q", raw)
	}
	if _, err := os.Stat(filepath.Join(dir, KeyProducts+".json")); err != nil {
		t.Fatalf("expected seeded products: %v", err)
	}
}

func TestSecondOpenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := openFileStore(t, dir)
	if err := s.DeleteProduct(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	again := openFileStore(t, dir)
	products, _ := again.ListProducts(ctx)
	if len(products) != 5 {
		t.Fatalf("expected 5 products after reopen, got %d", len(products))
	}
}

func TestCorruptValueFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	openFileStore(t, dir)

	if err := os.WriteFile(filepath.Join(dir, KeyProducts+".json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := openFileStore(t, dir)
	products, err := s.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 6 || products[0].Name != "Coca-Cola 600ml" {
		t.Fatalf("expected default catalog, got %d products", len(products))
	}
}

func TestBrowserDocumentIsReadable(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	openFileStore(t, dir)

	legacy := `[{"id":"1","name":"Coca-Cola 600ml","costPrice":10,"price":15,"stock":50,"category":"Bebidas","unitType":"unit"},
	{"id":"2","name":"Agua Purificada","costPrice":5,"price":8,"priceWholesale":90,"stock":240,"category":"Bebidas","unitType":"package","unitsPerPackage":12}]`
	if err := os.WriteFile(filepath.Join(dir, KeyProducts+".json"), []byte(legacy), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := openFileStore(t, dir)
	p, err := s.GetProduct(ctx, "2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Multiplier() != 12 || p.PriceWholesale == nil || p.PriceWholesale.String() != "90" {
		t.Fatalf("unexpected product %+v", p)
	}
}

// flakyKV fails the next Get of failKey once.
type flakyKV struct {
	KV
	failKey string
}

var errBackendDown = errors.New("backend unavailable")

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == f.failKey {
		f.failKey = ""
		return nil, false, errBackendDown
	}
	return f.KV.Get(ctx, key)
}

func TestReadErrorAbortsMutationInsteadOfWritingDefaults(t *testing.T) {
	ctx := context.Background()
	files, err := filekv.New(t.TempDir())
	if err != nil {
		t.Fatalf("filekv: %v", err)
	}
	kv := &flakyKV{KV: files}
	s, err := Open(ctx, kv, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	custom := domain.Product{ID: "custom", Name: "Tortillas", Category: "Básicos", UnitType: domain.UnitTypeUnit, Stock: 3}
	if err := s.Import(ctx, domain.Backup{Products: []domain.Product{custom}}); err != nil {
		t.Fatalf("import: %v", err)
	}

	kv.failKey = KeyProducts
	_, err = s.CreateProduct(ctx, domain.Product{ID: "new", Name: "Sal", Category: "Básicos", UnitType: domain.UnitTypeUnit})
	if !errors.Is(err, errBackendDown) {
		t.Fatalf("expected read error to surface, got %v", err)
	}

	products, err := s.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 1 || products[0].ID != "custom" {
		t.Fatalf("expected stored catalog to survive, got %+v", products)
	}
}

func TestReadErrorAbortsCommitSale(t *testing.T) {
	ctx := context.Background()
	files, err := filekv.New(t.TempDir())
	if err != nil {
		t.Fatalf("filekv: %v", err)
	}
	kv := &flakyKV{KV: files}
	s, err := Open(ctx, kv, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	product, _ := s.GetProduct(ctx, "1")
	first := domain.Sale{ID: "sale-1", Items: []domain.SaleLine{{Product: *product, Quantity: 1}}}
	if err := s.CommitSale(ctx, first, map[string]int{"1": 1}); err != nil {
		t.Fatalf("first sale: %v", err)
	}

	kv.failKey = KeySales
	second := domain.Sale{ID: "sale-2", Items: []domain.SaleLine{{Product: *product, Quantity: 1}}}
	if err := s.CommitSale(ctx, second, map[string]int{"1": 1}); !errors.Is(err, errBackendDown) {
		t.Fatalf("expected read error to surface, got %v", err)
	}

	sales, _ := s.ListSales(ctx)
	if len(sales) != 1 || sales[0].ID != "sale-1" {
		t.Fatalf("expected sales history to survive, got %d sales", len(sales))
	}
	after, _ := s.GetProduct(ctx, "1")
	if after.Stock != 49 {
		t.Fatalf("expected stock 49, got %d", after.Stock)
	}
}

func TestReadErrorServesDefaultsToReaders(t *testing.T) {
	ctx := context.Background()
	files, err := filekv.New(t.TempDir())
	if err != nil {
		t.Fatalf("filekv: %v", err)
	}
	kv := &flakyKV{KV: files}
	s, err := Open(ctx, kv, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.DeleteProduct(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	kv.failKey = KeyProducts
	products, err := s.ListProducts(ctx)
	if err != nil || len(products) != 6 {
		t.Fatalf("expected defaults while the backend is down, got %d (%v)", len(products), err)
	}
	products, _ = s.ListProducts(ctx)
	if len(products) != 5 {
		t.Fatalf("expected stored catalog once the backend recovers, got %d", len(products))
	}
}

func TestImportDuplicateKeysKeepLastOccurrence(t *testing.T) {
	ctx := context.Background()
	s := openFileStore(t, t.TempDir())

	doc := domain.Backup{
		Products: []domain.Product{
			{ID: "a", Name: "Primero", Category: "X", UnitType: domain.UnitTypeUnit, Stock: 1},
			{ID: "b", Name: "Otro", Category: "X", UnitType: domain.UnitTypeUnit, Stock: 2},
			{ID: "a", Name: "Último", Category: "X", UnitType: domain.UnitTypeUnit, Stock: 9},
		},
		Users: []domain.User{
			{Username: "ana", Password: "uno", Role: domain.RoleEmployee, Name: "Ana 1"},
			{Username: "ana", Password: "dos", Role: domain.RoleAdmin, Name: "Ana 2"},
		},
	}
	if err := s.Import(ctx, doc); err != nil {
		t.Fatalf("import: %v", err)
	}

	products, _ := s.ListProducts(ctx)
	if len(products) != 2 || products[0].ID != "a" || products[0].Name != "Último" || products[0].Stock != 9 {
		t.Fatalf("unexpected products after import: %+v", products)
	}
	users, _ := s.ListUsers(ctx)
	if len(users) != 1 || users[0].Name != "Ana 2" {
		t.Fatalf("unexpected users after import: %+v", users)
	}
}
