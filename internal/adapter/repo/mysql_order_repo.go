package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/OzanT1/ECommerce-Backend-System/internal/entity"
	"github.com/OzanT1/ECommerce-Backend-System/internal/usecase"
)

// MySQLOrderRepo is the durable store for orders, order items and product
// stock. InnoDB's repeatable-read plus the row locks taken below give the
// isolation the creation and transition transactions rely on.
type MySQLOrderRepo struct{ db *sql.DB }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)
var _ usecase.CatalogReader = (*MySQLOrderRepo)(nil)
var _ usecase.UserDirectory = (*MySQLOrderRepo)(nil)

func (r *MySQLOrderRepo) Begin(ctx context.Context) (usecase.Tx, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, err
	}
	return &mysqlTx{tx: tx}, nil
}

type mysqlTx struct {
	tx   *sql.Tx
	done bool
}

func (t *mysqlTx) Commit() error {
	t.done = true
	return t.tx.Commit()
}

// Rollback after Commit is a no-op so callers can keep it in a defer.
func (t *mysqlTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

const orderColumns = `id, order_number, user_id, status, sub_total, tax, shipping_cost, total_amount,
payment_intent_ref, shipping_address, shipping_city, shipping_postal_code, shipping_country,
created_at, paid_at, shipped_at, delivered_at`

func (t *mysqlTx) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	row := t.tx.QueryRowContext(ctx, `
SELECT `+orderColumns+` FROM orders WHERE id = ? FOR UPDATE`, orderID)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrOrderNotFound)
		}
		return nil, err
	}

	items, err := loadItems(ctx, t.tx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (t *mysqlTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO orders (id, order_number, user_id, status, sub_total, tax, shipping_cost, total_amount,
	payment_intent_ref, shipping_address, shipping_city, shipping_postal_code, shipping_country, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.ID, o.OrderNumber, o.UserID, string(o.Status), o.SubTotal, o.Tax, o.ShippingCost, o.TotalAmount,
		nullStr(o.PaymentIntentRef), o.Shipping.Address, o.Shipping.City, o.Shipping.PostalCode, o.Shipping.Country,
		o.CreatedAt)
	if err != nil {
		return err
	}
	// position preserves cart insertion order across reads.
	for i, it := range o.Items {
		_, err := t.tx.ExecContext(ctx, `
INSERT INTO order_items (id, order_id, product_id, quantity, price_at_purchase, sub_total, position)
VALUES (?,?,?,?,?,?,?)`,
			it.ID, o.ID, it.ProductID, it.Quantity, it.PriceAtPurchase, it.SubTotal, i)
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateOrder writes the mutable fields only; financials are fixed at
// creation. Existence is guaranteed by the FindByID row lock earlier in the
// same transaction; RowsAffected cannot stand in for it because the MySQL
// driver reports changed rows, and a repeat write of identical values
// changes nothing.
func (t *mysqlTx) UpdateOrder(ctx context.Context, o *domain.Order) error {
	_, err := t.tx.ExecContext(ctx, `
UPDATE orders
SET status = ?, payment_intent_ref = ?, paid_at = ?, shipped_at = ?, delivered_at = ?
WHERE id = ?`,
		string(o.Status), nullStr(o.PaymentIntentRef), o.PaidAt, o.ShippedAt, o.DeliveredAt, o.ID)
	return err
}

func (t *mysqlTx) FindProductByID(ctx context.Context, productID string) (*domain.Product, error) {
	row := t.tx.QueryRowContext(ctx, `
SELECT id, name, description, price, stock_quantity, image_url, is_active, created_at
FROM products WHERE id = ?`, productID)
	return scanProduct(row, productID)
}

// AdjustProductStock is the single concurrency-control point for stock: the
// conditional predicate makes the adjustment fail instead of going negative
// when a concurrent order won the race.
func (t *mysqlTx) AdjustProductStock(ctx context.Context, productID string, delta int) error {
	res, err := t.tx.ExecContext(ctx, `
UPDATE products
SET stock_quantity = stock_quantity + ?, updated_at = NOW()
WHERE id = ? AND stock_quantity + ? >= 0`,
		delta, productID, delta)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("product %s (delta %d): %w", productID, delta, domain.ErrStockConsistency)
	}
	return nil
}

func (r *MySQLOrderRepo) GetByID(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+orderColumns+` FROM orders WHERE id = ? AND user_id = ?`, orderID, userID)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrOrderNotFound)
		}
		return nil, err
	}
	items, err := loadItems(ctx, r.db, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *MySQLOrderRepo) ListByUser(ctx context.Context, userID string, page, pageSize int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+orderColumns+` FROM orders
WHERE user_id = ?
ORDER BY created_at DESC
LIMIT ? OFFSET ?`, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		items, err := loadItems(ctx, r.db, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

func (r *MySQLOrderRepo) FindActiveProduct(ctx context.Context, productID string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, description, price, stock_quantity, image_url, is_active, created_at
FROM products WHERE id = ? AND is_active = 1`, productID)
	return scanProduct(row, productID)
}

func (r *MySQLOrderRepo) EmailByID(ctx context.Context, userID string) (string, error) {
	var email string
	err := r.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = ?`, userID).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("user %s: not found", userID)
	}
	return email, err
}

type scannable interface {
	Scan(dest ...any) error
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanOrder(row scannable) (*domain.Order, error) {
	var (
		o         domain.Order
		status    string
		intentRef sql.NullString
		paidAt    sql.NullTime
		shippedAt sql.NullTime
		delivered sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &status, &o.SubTotal, &o.Tax, &o.ShippingCost, &o.TotalAmount,
		&intentRef, &o.Shipping.Address, &o.Shipping.City, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.CreatedAt, &paidAt, &shippedAt, &delivered)
	if err != nil {
		return nil, err
	}
	o.Status = domain.Status(status)
	o.PaymentIntentRef = intentRef.String
	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	if shippedAt.Valid {
		o.ShippedAt = &shippedAt.Time
	}
	if delivered.Valid {
		o.DeliveredAt = &delivered.Time
	}
	return &o, nil
}

func loadItems(ctx context.Context, q querier, orderID string) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
SELECT id, order_id, product_id, quantity, price_at_purchase, sub_total
FROM order_items WHERE order_id = ? ORDER BY position`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.PriceAtPurchase, &it.SubTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanProduct(row scannable, productID string) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.ImageURL, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", productID, domain.ErrProductUnavailable)
		}
		return nil, err
	}
	return &p, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
