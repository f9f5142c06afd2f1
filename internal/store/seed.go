package store

import (
	"github.com/shopspring/decimal"

	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/money"
)

// DefaultProducts is the catalog a fresh installation starts with.
func DefaultProducts() []domain.Product {
	return []domain.Product{
		{ID: "1", Name: "Coca-Cola 600ml", CostPrice: decimal.NewFromInt(10), Price: decimal.NewFromInt(15), Stock: 50, Category: "Bebidas", UnitType: domain.UnitTypeUnit},
		{ID: "2", Name: "Agua Purificada", CostPrice: decimal.NewFromInt(5), Price: decimal.NewFromInt(8), PriceWholesale: money.Ptr(decimal.NewFromInt(90)), Stock: 240, Category: "Bebidas", UnitType: domain.UnitTypePackage, UnitsPerPackage: 12},
		{ID: "3", Name: "Pan Blanco", CostPrice: decimal.NewFromInt(20), Price: decimal.NewFromInt(35), Stock: 30, Category: "Panadería", UnitType: domain.UnitTypeUnit},
		{ID: "4", Name: "Arroz 1kg", CostPrice: decimal.NewFromInt(15), Price: decimal.NewFromInt(22), PriceWholesale: money.Ptr(decimal.NewFromInt(250)), Stock: 100, Category: "Granos", UnitType: domain.UnitTypeBox, UnitsPerPackage: 12},
		{ID: "5", Name: "Leche Entera 1L", CostPrice: decimal.NewFromInt(18), Price: decimal.NewFromInt(25), Stock: 45, Category: "Lácteos", UnitType: domain.UnitTypeUnit},
		{ID: "6", Name: "Aceite Vegetal 1L", CostPrice: decimal.NewFromInt(35), Price: decimal.NewFromInt(42), Stock: 25, Category: "Aceites", UnitType: domain.UnitTypeUnit},
	}
}

// DefaultUsers are the seed accounts. Passwords are plaintext here and get
// hashed by the auth layer on first load.
func DefaultUsers() []domain.User {
	return []domain.User{
		{
			Username: "admin",
			Password: "admin123",
			Role:     domain.RoleAdmin,
			Name:     "Administrador Principal",
			SecurityQuestions: &domain.SecurityQuestions{
				Question1: "¿Cuál es tu fruta favorita?",
				Answer1:   "mango",
				Question2: "¿En qué ciudad naciste?",
				Answer2:   "guadalajara",
				Question3: "¿Cuál es el nombre de tu mascota?",
				Answer3:   "firulais",
			},
		},
		{
			Username: "empleado1",
			Password: "emp123",
			Role:     domain.RoleEmployee,
			Name:     "Juan Pérez",
		},
	}
}

// DefaultBackup bundles the seed collections with an empty sales ledger.
func DefaultBackup() domain.Backup {
	return domain.Backup{
		Products: DefaultProducts(),
		Sales:    []domain.Sale{},
		Users:    DefaultUsers(),
	}
}

// ValidateDecrements reports ErrNotFound or ErrInsufficientStock for a
// planned checkout against the current stock levels.
func ValidateDecrements(stock map[string]int, decrements map[string]int) error {
	for id, qty := range decrements {
		current, ok := stock[id]
		if !ok {
			return ErrNotFound
		}
		if qty < 0 || current < qty {
			return ErrInsufficientStock
		}
	}
	return nil
}
