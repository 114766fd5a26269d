package store

import (
	"context"
	"database/sql"
	"fmt"

	"commerce-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// InsertReturn creates a new return record
func (q *queries) InsertReturn(ctx context.Context, r *models.OrderReturn) error {
	query := `
		INSERT INTO order_returns (order_id, status)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	return sqlx.GetContext(ctx, q.ext, r, query, r.OrderID, r.Status)
}

// InsertReturnedItem creates one returned-item row
func (q *queries) InsertReturnedItem(ctx context.Context, ri *models.ReturnedItem) error {
	_, err := q.ext.ExecContext(ctx,
		"INSERT INTO returned_items (return_id, product_id, qty) VALUES ($1, $2, $3)",
		ri.ReturnID, ri.ProductID, ri.Qty)
	return err
}

// ReturnForUpdate retrieves a return with its row locked until the
// enclosing transaction ends, so two concurrent resolutions of the same
// return serialize and the loser sees the terminal status.
func (q *queries) ReturnForUpdate(ctx context.Context, returnID int64) (*models.OrderReturn, error) {
	var r models.OrderReturn
	err := sqlx.GetContext(ctx, q.ext, &r,
		"SELECT * FROM order_returns WHERE id = $1 FOR UPDATE", returnID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("return %d: %w", returnID, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ReturnedItems retrieves the items of a return
func (q *queries) ReturnedItems(ctx context.Context, returnID int64) ([]models.ReturnedItem, error) {
	var items []models.ReturnedItem
	err := sqlx.SelectContext(ctx, q.ext, &items,
		"SELECT * FROM returned_items WHERE return_id = $1", returnID)
	return items, err
}

// UpdateReturnStatus updates the status of a return
func (q *queries) UpdateReturnStatus(ctx context.Context, returnID int64, status string) error {
	_, err := q.ext.ExecContext(ctx,
		"UPDATE order_returns SET status = $1, updated_at = NOW() WHERE id = $2",
		status, returnID)
	return err
}

// InsertTransaction appends one ledger entry. Ledger rows are never
// updated or deleted.
func (q *queries) InsertTransaction(ctx context.Context, t *models.UserTransaction) error {
	query := `
		INSERT INTO user_transactions (user_id, amount, type, order_id, return_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return sqlx.GetContext(ctx, q.ext, t, query,
		t.UserID, t.Amount, t.Type, t.OrderID, t.ReturnID)
}

// TransactionsByUser retrieves a user's ledger entries, newest first
func (s *Store) TransactionsByUser(ctx context.Context, userID int64, limit, offset int) ([]models.UserTransaction, error) {
	var txs []models.UserTransaction
	err := s.db.SelectContext(ctx, &txs,
		"SELECT * FROM user_transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		userID, limit, offset)
	return txs, err
}

// Transactions retrieves all ledger entries, newest first
func (s *Store) Transactions(ctx context.Context, limit, offset int) ([]models.UserTransaction, error) {
	var txs []models.UserTransaction
	err := s.db.SelectContext(ctx, &txs,
		"SELECT * FROM user_transactions ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	return txs, err
}
