package store

import (
	"context"
	"errors"

	"lafavorita/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicate         = errors.New("already exists")
	ErrInvalid           = errors.New("invalid record")
)

// Repository persists the three collections: products, sales and users.
// Implementations must be safe for concurrent use.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListSales(ctx context.Context) ([]domain.Sale, error)
	// CommitSale appends sale and subtracts decrements (product id -> base
	// units) from stock as one unit. If any product is missing or short on
	// stock nothing is written.
	CommitSale(ctx context.Context, sale domain.Sale, decrements map[string]int) error

	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) error
	// UpdateUser replaces the record stored under username; user.Username may
	// differ to rename the account.
	UpdateUser(ctx context.Context, username string, user domain.User) error
	DeleteUser(ctx context.Context, username string) error

	Export(ctx context.Context) (domain.Backup, error)
	// Import overwrites only the collections present (non-nil) in doc.
	Import(ctx context.Context, doc domain.Backup) error
	// Reset restores the default catalog and accounts and clears sales.
	Reset(ctx context.Context) error
}
