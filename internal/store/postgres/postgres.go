package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lafavorita/backend/internal/domain"
	"lafavorita/backend/internal/store"
)

const initializedKey = "initialized"

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

// NewPool opens a pool with NUMERIC columns mapped to decimal.Decimal.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// New connects, migrates, and seeds the default catalog and accounts on
// first use.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	s := &Store{pool: pool}
	if err := s.seedOnce(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) seedOnce(ctx context.Context) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO app_state (key, value) VALUES ($1, 'true')
		ON CONFLICT (key) DO NOTHING
	`, initializedKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tx.Commit(ctx)
	}
	if err := replace(ctx, tx, store.DefaultBackup()); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}
	return tx.Commit(ctx)
}

const productColumns = `id, name, cost_price, price, price_wholesale, stock, category, barcode,
	unit_type, units_per_package, expiration_date, is_on_sale, original_price`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p       domain.Product
		unit    string
		expires *time.Time
	)
	err := row.Scan(&p.ID, &p.Name, &p.CostPrice, &p.Price, &p.PriceWholesale, &p.Stock, &p.Category,
		&p.Barcode, &unit, &p.UnitsPerPackage, &expires, &p.IsOnSale, &p.OriginalPrice)
	if err != nil {
		return domain.Product{}, err
	}
	p.UnitType = domain.UnitType(unit)
	if expires != nil {
		p.ExpirationDate = expires.Format(time.DateOnly)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.ID) == "" || strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalid
	}
	if err := insertProduct(ctx, s.pool, product); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := product.Clone()
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" {
		return nil, store.ErrInvalid
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET name = $2, cost_price = $3, price = $4, price_wholesale = $5, stock = $6, category = $7,
			barcode = $8, unit_type = $9, units_per_package = $10, expiration_date = $11,
			is_on_sale = $12, original_price = $13, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.CostPrice, product.Price, product.PriceWholesale, product.Stock,
		product.Category, product.Barcode, string(product.UnitType), product.UnitsPerPackage,
		dateArg(product.ExpirationDate), product.IsOnSale, product.OriginalPrice)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, store.ErrNotFound
	}
	updated := product.Clone()
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListSales(ctx context.Context) ([]domain.Sale, error) {
	return listSales(ctx, s.pool)
}

func listSales(ctx context.Context, db dbtx) ([]domain.Sale, error) {
	rows, err := db.Query(ctx, `
		SELECT id, sold_at, total, payment_method, amount_paid, change_due, operator
		FROM sales
		ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	sales := make([]domain.Sale, 0, 128)
	index := make(map[string]int)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.Date, &sale.Total, &sale.PaymentMethod,
			&sale.AmountPaid, &sale.Change, &sale.Operator); err != nil {
			rows.Close()
			return nil, err
		}
		sale.Date = sale.Date.UTC()
		sale.Items = make([]domain.SaleLine, 0, 4)
		index[sale.ID] = len(sales)
		sales = append(sales, sale)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := db.Query(ctx, `
		SELECT sale_id, product, quantity, discount, sell_by_package
		FROM sale_items
		ORDER BY sale_id, line_no
	`)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var (
			saleID  string
			payload []byte
			line    domain.SaleLine
		)
		if err := itemRows.Scan(&saleID, &payload, &line.Quantity, &line.Discount, &line.SellByPackage); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &line.Product); err != nil {
			return nil, fmt.Errorf("decode line product of sale %s: %w", saleID, err)
		}
		i, ok := index[saleID]
		if !ok {
			continue
		}
		sales[i].Items = append(sales[i].Items, line)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) CommitSale(ctx context.Context, sale domain.Sale, decrements map[string]int) error {
	if sale.ID == "" || len(sale.Items) == 0 {
		return store.ErrInvalid
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]string, 0, len(decrements))
	for id := range decrements {
		ids = append(ids, id)
	}

	rows, err := tx.Query(ctx, `SELECT id, stock FROM products WHERE id = ANY($1) FOR UPDATE`, ids)
	if err != nil {
		return err
	}
	stock := make(map[string]int, len(ids))
	for rows.Next() {
		var id string
		var qty int
		if err := rows.Scan(&id, &qty); err != nil {
			rows.Close()
			return err
		}
		stock[id] = qty
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if err := store.ValidateDecrements(stock, decrements); err != nil {
		return err
	}

	for id, qty := range decrements {
		if _, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1
		`, id, qty); err != nil {
			return err
		}
	}
	if err := insertSale(ctx, tx, sale); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT username, password, role, name, security_questions
		FROM users
		ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, 16)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, username string) (*domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		SELECT username, password, role, name, security_questions
		FROM users
		WHERE username = $1
	`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	if strings.TrimSpace(user.Username) == "" {
		return store.ErrInvalid
	}
	if err := insertUser(ctx, s.pool, user); err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, username string, user domain.User) error {
	if strings.TrimSpace(user.Username) == "" {
		return store.ErrInvalid
	}
	questions, err := questionsArg(user.SecurityQuestions)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET username = $2, password = $3, role = $4, name = $5, security_questions = $6
		WHERE username = $1
	`, username, user.Username, user.Password, user.Role, user.Name, questions)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, username string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Export(ctx context.Context) (domain.Backup, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return domain.Backup{}, err
	}
	sales, err := s.ListSales(ctx)
	if err != nil {
		return domain.Backup{}, err
	}
	users, err := s.ListUsers(ctx)
	if err != nil {
		return domain.Backup{}, err
	}
	return domain.Backup{Products: products, Sales: sales, Users: users}, nil
}

func (s *Store) Import(ctx context.Context, doc domain.Backup) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := replace(ctx, tx, doc); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Reset(ctx context.Context) error {
	return s.Import(ctx, store.DefaultBackup())
}

// replace swaps out each collection present in doc. Duplicate keys keep the
// last occurrence, as a keyed document would.
func replace(ctx context.Context, tx pgx.Tx, doc domain.Backup) error {
	if doc.Products != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM products`); err != nil {
			return err
		}
		for _, p := range doc.Products {
			if _, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, p.ID); err != nil {
				return err
			}
			if err := insertProduct(ctx, tx, p); err != nil {
				return fmt.Errorf("import product %s: %w", p.ID, err)
			}
		}
	}
	if doc.Sales != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM sales`); err != nil {
			return err
		}
		for _, sale := range doc.Sales {
			if err := insertSale(ctx, tx, sale); err != nil {
				return fmt.Errorf("import sale %s: %w", sale.ID, err)
			}
		}
	}
	if doc.Users != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM users`); err != nil {
			return err
		}
		for _, u := range doc.Users {
			if _, err := tx.Exec(ctx, `DELETE FROM users WHERE username = $1`, u.Username); err != nil {
				return err
			}
			if err := insertUser(ctx, tx, u); err != nil {
				return fmt.Errorf("import user %s: %w", u.Username, err)
			}
		}
	}
	return nil
}

func insertProduct(ctx context.Context, db dbtx, p domain.Product) error {
	unit := p.UnitType
	if !unit.Valid() {
		unit = domain.UnitTypeUnit
	}
	_, err := db.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, p.ID, p.Name, p.CostPrice, p.Price, p.PriceWholesale, p.Stock, p.Category, p.Barcode,
		string(unit), p.UnitsPerPackage, dateArg(p.ExpirationDate), p.IsOnSale, p.OriginalPrice)
	return err
}

func insertSale(ctx context.Context, db dbtx, sale domain.Sale) error {
	if _, err := db.Exec(ctx, `
		INSERT INTO sales (id, sold_at, total, payment_method, amount_paid, change_due, operator)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, sale.ID, sale.Date.UTC(), sale.Total, sale.PaymentMethod, sale.AmountPaid, sale.Change, sale.Operator); err != nil {
		return err
	}
	for i, line := range sale.Items {
		payload, err := json.Marshal(line.Product)
		if err != nil {
			return err
		}
		if _, err := db.Exec(ctx, `
			INSERT INTO sale_items (sale_id, line_no, product, quantity, discount, sell_by_package)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, sale.ID, i, payload, line.Quantity, line.Discount, line.SellByPackage); err != nil {
			return err
		}
	}
	return nil
}

func insertUser(ctx context.Context, db dbtx, u domain.User) error {
	questions, err := questionsArg(u.SecurityQuestions)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, `
		INSERT INTO users (username, password, role, name, security_questions)
		VALUES ($1,$2,$3,$4,$5)
	`, u.Username, u.Password, u.Role, u.Name, questions)
	return err
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		u       domain.User
		payload []byte
	)
	if err := row.Scan(&u.Username, &u.Password, &u.Role, &u.Name, &payload); err != nil {
		return domain.User{}, err
	}
	if len(payload) > 0 {
		var q domain.SecurityQuestions
		if err := json.Unmarshal(payload, &q); err != nil {
			return domain.User{}, fmt.Errorf("decode security questions of %s: %w", u.Username, err)
		}
		u.SecurityQuestions = &q
	}
	return u, nil
}

func questionsArg(q *domain.SecurityQuestions) ([]byte, error) {
	if q == nil {
		return nil, nil
	}
	return json.Marshal(q)
}

func dateArg(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil
	}
	return &t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
