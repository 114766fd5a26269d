package store

import (
	"context"
	"database/sql"
	"fmt"

	"commerce-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// InsertOrder creates a new order
func (q *queries) InsertOrder(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (user_id, status)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	return sqlx.GetContext(ctx, q.ext, o, query, o.UserID, o.Status)
}

// InsertOrderProduct creates a new order line item with its price snapshot
func (q *queries) InsertOrderProduct(ctx context.Context, op *models.OrderProduct) error {
	_, err := q.ext.ExecContext(ctx,
		"INSERT INTO order_products (order_id, product_id, qty, price_per_item) VALUES ($1, $2, $3, $4)",
		op.OrderID, op.ProductID, op.Qty, op.PricePerItem)
	return err
}

// OrderByID retrieves an order by ID
func (q *queries) OrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := sqlx.GetContext(ctx, q.ext, &order, "SELECT * FROM orders WHERE id = $1", orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %d: %w", orderID, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// OrderForUser retrieves an order scoped to its owner. Ownership is part
// of the lookup predicate so a foreign order is indistinguishable from a
// missing one.
func (q *queries) OrderForUser(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	var order models.Order
	err := sqlx.GetContext(ctx, q.ext, &order,
		"SELECT * FROM orders WHERE id = $1 AND user_id = $2", orderID, userID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %d for user %d: %w", orderID, userID, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// OrderProducts retrieves all line items of an order
func (q *queries) OrderProducts(ctx context.Context, orderID int64) ([]models.OrderProduct, error) {
	var items []models.OrderProduct
	err := sqlx.SelectContext(ctx, q.ext, &items,
		"SELECT * FROM order_products WHERE order_id = $1", orderID)
	return items, err
}

// OrderProductsForUpdate retrieves the line items matching productIDs with
// row locks held until the enclosing transaction ends, serializing the
// check-then-decrement against concurrent returns on the same lines.
func (q *queries) OrderProductsForUpdate(ctx context.Context, orderID int64, productIDs []int64) ([]models.OrderProduct, error) {
	if len(productIDs) == 0 {
		return []models.OrderProduct{}, nil
	}

	query, args, err := sqlx.In(
		"SELECT * FROM order_products WHERE order_id = ? AND product_id IN (?) FOR UPDATE",
		orderID, productIDs)
	if err != nil {
		return nil, err
	}
	query = q.ext.Rebind(query)

	var items []models.OrderProduct
	err = sqlx.SelectContext(ctx, q.ext, &items, query, args...)
	return items, err
}

// DecrementOrderProductQty subtracts qty from a line item
func (q *queries) DecrementOrderProductQty(ctx context.Context, orderID, productID int64, qty int) error {
	_, err := q.ext.ExecContext(ctx,
		"UPDATE order_products SET qty = qty - $1 WHERE order_id = $2 AND product_id = $3",
		qty, orderID, productID)
	return err
}

// UpdateOrderStatus updates order status
func (q *queries) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	res, err := q.ext.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %d: %w", orderID, sql.ErrNoRows)
	}
	return nil
}

// OrderDetail assembles the full order view: header, line items, returns
// with their items, and the ledger entries referencing the order.
func (q *queries) OrderDetail(ctx context.Context, orderID int64) (*models.OrderDetail, error) {
	order, err := q.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	products, err := q.OrderProducts(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var returns []models.OrderReturn
	if err := sqlx.SelectContext(ctx, q.ext, &returns,
		"SELECT * FROM order_returns WHERE order_id = $1 ORDER BY id", orderID); err != nil {
		return nil, err
	}

	details := make([]models.ReturnDetail, 0, len(returns))
	for _, r := range returns {
		items, err := q.ReturnedItems(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, models.ReturnDetail{Return: r, Items: items})
	}

	var txs []models.UserTransaction
	if err := sqlx.SelectContext(ctx, q.ext, &txs,
		"SELECT * FROM user_transactions WHERE order_id = $1 ORDER BY id", orderID); err != nil {
		return nil, err
	}

	return &models.OrderDetail{
		Order:        *order,
		Products:     products,
		Returns:      details,
		Transactions: txs,
	}, nil
}

// OrdersByUser retrieves a page of a user's orders, newest first
func (s *Store) OrdersByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		userID, limit, offset)
	return orders, err
}

// CountOrdersByUser counts a user's orders
func (s *Store) CountOrdersByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM orders WHERE user_id = $1", userID)
	return count, err
}
