package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"lafavorita/backend/internal/auth"
	"lafavorita/backend/internal/cache"
	"lafavorita/backend/internal/checkout"
	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/promo"
	"lafavorita/backend/internal/store"
	"lafavorita/backend/internal/store/memory"
)

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	authManager := auth.NewManager(auth.Config{Secret: "test-secret-test-secret-test-secret"}, repo, nil, zerolog.Nop())
	svc := New(repo, cache.NewMemory[checkout.Cart](), zerolog.Nop()).
		WithClock(func() time.Time { return testNow }).
		WithLocation(time.UTC).
		WithCredentialUpgrader(authManager)
	return svc, repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin, Name: "Administrador Principal"})
}

func employeeCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "empleado1", Role: domain.RoleEmployee, Name: "Juan Pérez"})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func stockOf(t *testing.T, repo *memory.Store, id string) int {
	t.Helper()
	p, err := repo.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("get product %s: %v", id, err)
	}
	return p.Stock
}

func TestMutationsRequireActor(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.CreateProduct(context.Background(), domain.ProductInput{Name: "x", Category: "y", UnitType: domain.UnitTypeUnit})
	if !errors.Is(err, ErrNoActor) {
		t.Fatalf("expected ErrNoActor, got %v", err)
	}
	if _, err := svc.OpenCart(context.Background()); !errors.Is(err, ErrNoActor) {
		t.Fatalf("expected ErrNoActor for cart, got %v", err)
	}
}

func TestCreateProductConvertsToBaseUnits(t *testing.T) {
	svc, _ := newTestService()

	p, err := svc.CreateProduct(employeeCtx(), domain.ProductInput{
		Name:            "Galletas",
		CostPrice:       dec("8"),
		Price:           dec("12"),
		PriceWholesale:  decimalPtr("130"),
		Quantity:        3,
		Category:        "Botanas",
		UnitType:        domain.UnitTypeBox,
		UnitsPerPackage: 12,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if p.Stock != 36 {
		t.Fatalf("expected 36 base units, got %d", p.Stock)
	}
	if p.ID == "" {
		t.Fatalf("expected generated id")
	}

	list, err := svc.ListProducts(context.Background(), domain.ProductQuery{Search: "galle"})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(list) != 1 || list[0].ID != p.ID {
		t.Fatalf("expected search to find the new product, got %+v", list)
	}
}

func TestAddStockCreatesBatchOrMerges(t *testing.T) {
	svc, repo := newTestService()
	ctx := employeeCtx()

	merged, err := svc.AddStock(ctx, "2", domain.StockEntryRequest{Quantity: 2})
	if err != nil {
		t.Fatalf("add stock: %v", err)
	}
	if merged.CreatedBatch || merged.AddedUnits != 24 || stockOf(t, repo, "2") != 264 {
		t.Fatalf("unexpected merge result: %+v", merged)
	}

	batch, err := svc.AddStock(ctx, "2", domain.StockEntryRequest{Quantity: 1, ExpirationDate: "2026-06-01", StartNewBatch: true})
	if err != nil {
		t.Fatalf("add batch: %v", err)
	}
	if !batch.CreatedBatch || batch.Product.ID == "2" || batch.Product.Stock != 12 {
		t.Fatalf("unexpected batch result: %+v", batch)
	}
	if stockOf(t, repo, "2") != 264 {
		t.Fatalf("original product stock must not change for a new batch")
	}
}

func TestCompleteSaleCommitsStockAndSale(t *testing.T) {
	svc, repo := newTestService()
	ctx := employeeCtx()

	cart, err := svc.OpenCart(ctx)
	if err != nil {
		t.Fatalf("open cart: %v", err)
	}
	if _, err := svc.AddToCart(ctx, cart.ID, domain.CartLineRequest{ProductID: "2", SellByPackage: true}); err != nil {
		t.Fatalf("add water package: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.AddToCart(ctx, cart.ID, domain.CartLineRequest{ProductID: "1"}); err != nil {
			t.Fatalf("add cola: %v", err)
		}
	}

	view, err := svc.GetCart(ctx, cart.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if !view.Total.Equal(dec("120")) {
		t.Fatalf("expected total 120, got %s", view.Total)
	}

	_, err = svc.CompleteSale(ctx, cart.ID, domain.CheckoutRequest{AmountPaid: dec("100")})
	var payErr *checkout.PaymentError
	if !errors.As(err, &payErr) || !payErr.Missing.Equal(dec("20")) {
		t.Fatalf("expected payment error missing 20, got %v", err)
	}
	if stockOf(t, repo, "2") != 240 || stockOf(t, repo, "1") != 50 {
		t.Fatalf("stock must not change on a rejected payment")
	}

	resp, err := svc.CompleteSale(ctx, cart.ID, domain.CheckoutRequest{AmountPaid: dec("150")})
	if err != nil {
		t.Fatalf("complete sale: %v", err)
	}
	if !resp.Change.Equal(dec("30")) || resp.Sale.PaymentMethod != domain.PaymentCash || resp.Sale.Operator != "empleado1" {
		t.Fatalf("unexpected sale: %+v", resp)
	}
	if stockOf(t, repo, "2") != 228 || stockOf(t, repo, "1") != 48 {
		t.Fatalf("unexpected stock after sale: water=%d cola=%d", stockOf(t, repo, "2"), stockOf(t, repo, "1"))
	}

	sales, _ := svc.ListSales(ctx)
	if len(sales) != 1 {
		t.Fatalf("expected 1 sale, got %d", len(sales))
	}
	if _, err := svc.GetCart(ctx, cart.ID); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected cart to be gone after checkout, got %v", err)
	}
}

func TestCompleteSaleRevalidatesStock(t *testing.T) {
	svc, repo := newTestService()
	ctx := employeeCtx()

	cart, _ := svc.OpenCart(ctx)
	for i := 0; i < 3; i++ {
		if _, err := svc.AddToCart(ctx, cart.ID, domain.CartLineRequest{ProductID: "6"}); err != nil {
			t.Fatalf("add oil: %v", err)
		}
	}

	oil, _ := repo.GetProduct(context.Background(), "6")
	oil.Stock = 2
	if _, err := repo.UpdateProduct(context.Background(), *oil); err != nil {
		t.Fatalf("update stock: %v", err)
	}

	_, err := svc.CompleteSale(ctx, cart.ID, domain.CheckoutRequest{AmountPaid: dec("500")})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	sales, _ := svc.ListSales(ctx)
	if len(sales) != 0 || stockOf(t, repo, "6") != 2 {
		t.Fatalf("nothing may be committed on failure")
	}
	if _, err := svc.GetCart(ctx, cart.ID); err != nil {
		t.Fatalf("cart must survive a failed checkout: %v", err)
	}
}

func TestCompleteSaleRejectsDeletedProduct(t *testing.T) {
	svc, _ := newTestService()
	ctx := employeeCtx()

	cart, _ := svc.OpenCart(ctx)
	if _, err := svc.AddToCart(ctx, cart.ID, domain.CartLineRequest{ProductID: "3"}); err != nil {
		t.Fatalf("add bread: %v", err)
	}
	if err := svc.DeleteProduct(ctx, "3"); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if _, err := svc.CompleteSale(ctx, cart.ID, domain.CheckoutRequest{AmountPaid: dec("100")}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCartBelongsToOperator(t *testing.T) {
	svc, repo := newTestService()
	if err := repo.CreateUser(context.Background(), domain.User{Username: "empleado2", Password: "x", Role: domain.RoleEmployee, Name: "Ana"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	cart, _ := svc.OpenCart(employeeCtx())
	other := WithActor(context.Background(), domain.Actor{Username: "empleado2", Role: domain.RoleEmployee})
	if _, err := svc.GetCart(other, cart.ID); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected another employee to be denied, got %v", err)
	}
	if _, err := svc.GetCart(adminCtx(), cart.ID); err != nil {
		t.Fatalf("admin should see any cart: %v", err)
	}
}

func TestUpdateCartLineDeltaAndDiscount(t *testing.T) {
	svc, _ := newTestService()
	ctx := employeeCtx()

	cart, _ := svc.OpenCart(ctx)
	_, _ = svc.AddToCart(ctx, cart.ID, domain.CartLineRequest{ProductID: "5"})

	delta := 2
	discount := 10.0
	view, err := svc.UpdateCartLine(ctx, cart.ID, "5", domain.CartLineUpdate{Delta: &delta, Discount: &discount})
	if err != nil {
		t.Fatalf("update line: %v", err)
	}
	if len(view.Lines) != 1 || view.Lines[0].Quantity != 3 || !view.Total.Equal(dec("67.5")) {
		t.Fatalf("unexpected cart: %+v", view)
	}

	minus := -3
	view, _ = svc.UpdateCartLine(ctx, cart.ID, "5", domain.CartLineUpdate{Delta: &minus})
	if len(view.Lines) != 0 {
		t.Fatalf("expected line removed when quantity reaches zero")
	}
}

func TestApplyDiscountBelowCostNeedsConfirmation(t *testing.T) {
	svc, repo := newTestService()
	ctx := employeeCtx()

	_, err := svc.ApplyDiscount(ctx, "1", domain.DiscountRequest{Percent: 50})
	var below *promo.BelowCostError
	if !errors.As(err, &below) || !below.LossPerUnit.Equal(dec("2.5")) {
		t.Fatalf("expected below-cost warning with loss 2.5, got %v", err)
	}
	cola, _ := repo.GetProduct(context.Background(), "1")
	if cola.IsOnSale || !cola.Price.Equal(dec("15")) {
		t.Fatalf("unconfirmed discount must not be committed")
	}

	result, err := svc.ApplyDiscount(ctx, "1", domain.DiscountRequest{Percent: 50, ConfirmBelowCost: true})
	if err != nil {
		t.Fatalf("confirmed discount: %v", err)
	}
	if !result.Product.Price.Equal(dec("7.5")) || !result.Product.OriginalPrice.Equal(dec("15")) {
		t.Fatalf("unexpected discounted product: %+v", result.Product)
	}

	overview, _ := svc.PromotionsOverview(ctx)
	if len(overview.OnSale) != 1 {
		t.Fatalf("expected one product on sale, got %d", len(overview.OnSale))
	}

	restored, err := svc.RemoveDiscount(ctx, "1")
	if err != nil {
		t.Fatalf("remove discount: %v", err)
	}
	if restored.IsOnSale || !restored.Price.Equal(dec("15")) || restored.OriginalPrice != nil {
		t.Fatalf("unexpected restored product: %+v", restored)
	}
}

func TestReportsAfterSale(t *testing.T) {
	svc, _ := newTestService()
	ctx := employeeCtx()

	cart, _ := svc.OpenCart(ctx)
	_, _ = svc.AddToCart(ctx, cart.ID, domain.CartLineRequest{ProductID: "1"})
	if _, err := svc.CompleteSale(ctx, cart.ID, domain.CheckoutRequest{AmountPaid: dec("20")}); err != nil {
		t.Fatalf("complete sale: %v", err)
	}

	rep, err := svc.SalesReport(ctx, "today")
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}
	if rep.SaleCount != 1 || !rep.TotalRevenue.Equal(dec("15")) || !rep.TotalProfit.Equal(dec("5")) {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(rep.ByHour) != 1 || rep.ByHour[0].Hour != 15 {
		t.Fatalf("unexpected hourly breakdown: %+v", rep.ByHour)
	}
	if _, err := svc.SalesReport(ctx, "decade"); err == nil {
		t.Fatalf("expected invalid range error")
	}

	drawer, err := svc.CashDrawer(ctx)
	if err != nil {
		t.Fatalf("cash drawer: %v", err)
	}
	if drawer.TodayCount != 1 || !drawer.TodayTotal.Equal(dec("15")) || drawer.ByPayment[0].Count != 1 {
		t.Fatalf("unexpected drawer: %+v", drawer)
	}
}

func TestEmployeeAdministration(t *testing.T) {
	svc, repo := newTestService()
	ctx := adminCtx()

	if _, err := svc.ListEmployees(employeeCtx()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for employee, got %v", err)
	}

	created, err := svc.CreateEmployee(ctx, domain.EmployeeCreateRequest{Username: "maria", Password: "secreto", ConfirmPassword: "secreto", Role: domain.RoleEmployee, Name: "María"})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	if created.Username != "maria" {
		t.Fatalf("unexpected employee: %+v", created)
	}
	stored, _ := repo.GetUser(context.Background(), "maria")
	if !auth.IsHash(stored.Password) {
		t.Fatalf("expected hashed password")
	}

	_, err = svc.CreateEmployee(ctx, domain.EmployeeCreateRequest{Username: "maria", Password: "secreto", ConfirmPassword: "secreto", Role: domain.RoleEmployee, Name: "Otra"})
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	_, err = svc.CreateEmployee(ctx, domain.EmployeeCreateRequest{Username: "pepe", Password: "secreto", ConfirmPassword: "otro123", Role: domain.RoleEmployee, Name: "Pepe"})
	if !errors.Is(err, auth.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}

	rename := "empleado1"
	if _, err := svc.UpdateEmployee(ctx, "maria", domain.EmployeeUpdateRequest{Username: &rename}); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected rename collision to fail, got %v", err)
	}

	questions := &domain.SecurityQuestions{Question1: "a?", Answer1: "X", Question2: "b?", Answer2: "y", Question3: "c?", Answer3: "z"}
	if _, err := svc.UpdateEmployee(ctx, "maria", domain.EmployeeUpdateRequest{SecurityQuestions: questions}); !errors.Is(err, ErrInvalidEmployee) {
		t.Fatalf("expected security questions to be rejected for employees, got %v", err)
	}

	role := domain.RoleAdmin
	updated, err := svc.UpdateEmployee(ctx, "maria", domain.EmployeeUpdateRequest{Role: &role, SecurityQuestions: questions})
	if err != nil {
		t.Fatalf("promote with questions: %v", err)
	}
	if !updated.HasSecurityQuestions || len(updated.Questions) != 3 {
		t.Fatalf("unexpected employee view: %+v", updated)
	}

	if err := svc.DeleteEmployee(ctx, "admin"); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("expected ErrSelfDelete, got %v", err)
	}
	if err := svc.DeleteEmployee(ctx, "maria"); err != nil {
		t.Fatalf("delete employee: %v", err)
	}
}

func TestRenamedAdminCannotDeleteOwnAccount(t *testing.T) {
	svc, repo := newTestService()
	ctx := adminCtx()

	renamed := "jefe"
	if _, err := svc.UpdateEmployee(ctx, "admin", domain.EmployeeUpdateRequest{Username: &renamed}); err != nil {
		t.Fatalf("rename self: %v", err)
	}

	if err := svc.DeleteEmployee(ctx, "jefe"); !errors.Is(err, ErrNoActor) {
		t.Fatalf("expected stale session to be rejected, got %v", err)
	}
	jefeCtx := WithActor(context.Background(), domain.Actor{Username: "jefe", Role: domain.RoleAdmin})
	if err := svc.DeleteEmployee(jefeCtx, "jefe"); !errors.Is(err, ErrSelfDelete) {
		t.Fatalf("expected ErrSelfDelete under the new name, got %v", err)
	}

	users, _ := repo.ListUsers(context.Background())
	if len(users) != 2 {
		t.Fatalf("expected both accounts to remain, got %d", len(users))
	}
}

func TestDemotedAdminLosesEmployeeAdministration(t *testing.T) {
	svc, _ := newTestService()
	ctx := adminCtx()

	if _, err := svc.CreateEmployee(ctx, domain.EmployeeCreateRequest{Username: "rosa", Password: "secreto", ConfirmPassword: "secreto", Role: domain.RoleAdmin, Name: "Rosa"}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	employee := domain.RoleEmployee
	if _, err := svc.UpdateEmployee(ctx, "rosa", domain.EmployeeUpdateRequest{Role: &employee}); err != nil {
		t.Fatalf("demote: %v", err)
	}

	rosaCtx := WithActor(context.Background(), domain.Actor{Username: "rosa", Role: domain.RoleAdmin})
	if err := svc.DeleteEmployee(rosaCtx, "admin"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected demoted admin to be forbidden, got %v", err)
	}
}

func TestLastAdminCannotBeDemoted(t *testing.T) {
	svc, _ := newTestService()

	employee := domain.RoleEmployee
	if _, err := svc.UpdateEmployee(adminCtx(), "admin", domain.EmployeeUpdateRequest{Role: &employee}); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}
}

func TestBackupPartialImportAndReset(t *testing.T) {
	svc, repo := newTestService()
	ctx := adminCtx()

	if err := svc.ImportBackup(ctx, []byte(`{"products": [`)); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}

	doc := []byte(`{"products":[{"id":"p1","name":"Jabón","costPrice":5,"price":9,"stock":4,"category":"Limpieza","unitType":"unit"}]}`)
	if err := svc.ImportBackup(ctx, doc); err != nil {
		t.Fatalf("import: %v", err)
	}
	products, _ := repo.ListProducts(context.Background())
	users, _ := repo.ListUsers(context.Background())
	if len(products) != 1 || len(users) != 2 {
		t.Fatalf("expected products replaced and users kept, got %d products %d users", len(products), len(users))
	}

	exported, err := svc.ExportBackup(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.ExportDate != testNow.Format(time.RFC3339) {
		t.Fatalf("unexpected export date %q", exported.ExportDate)
	}

	if err := svc.ResetData(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	products, _ = repo.ListProducts(context.Background())
	if len(products) != 6 {
		t.Fatalf("expected seed catalog after reset, got %d", len(products))
	}
	admin, _ := repo.GetUser(context.Background(), "admin")
	if !auth.IsHash(admin.Password) {
		t.Fatalf("expected seed credentials to be hashed after reset")
	}
}

func TestMe(t *testing.T) {
	svc, _ := newTestService()
	me, err := svc.Me(employeeCtx())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Name != "Juan Pérez" || me.HasSecurityQuestions {
		t.Fatalf("unexpected profile: %+v", me)
	}
}

func decimalPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
