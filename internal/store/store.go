package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"commerce-service/internal/models"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Querier is the set of data operations the workflows run. It is
// implemented both by Store (auto-commit) and by the transaction handle
// passed to an InTx callback, so every workflow step can run inside one
// atomic unit.
type Querier interface {
	// catalog
	ProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	ProductByID(ctx context.Context, id int64) (*models.Product, error)
	ProductForMerchant(ctx context.Context, id, merchantID int64) (*models.Product, error)
	InsertProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	SoftDeleteProduct(ctx context.Context, id, merchantID int64) error
	IncrementProductStock(ctx context.Context, productID int64, qty int) error

	// assets
	InsertAsset(ctx context.Context, a *models.Asset) error
	AssetsByProduct(ctx context.Context, productID, ownerID int64) ([]models.Asset, error)
	DeleteAssetsByProduct(ctx context.Context, productID, ownerID int64) error

	// orders
	InsertOrder(ctx context.Context, o *models.Order) error
	InsertOrderProduct(ctx context.Context, op *models.OrderProduct) error
	OrderForUser(ctx context.Context, orderID, userID int64) (*models.Order, error)
	OrderProducts(ctx context.Context, orderID int64) ([]models.OrderProduct, error)
	OrderProductsForUpdate(ctx context.Context, orderID int64, productIDs []int64) ([]models.OrderProduct, error)
	DecrementOrderProductQty(ctx context.Context, orderID, productID int64, qty int) error
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
	OrderDetail(ctx context.Context, orderID int64) (*models.OrderDetail, error)

	// returns
	InsertReturn(ctx context.Context, r *models.OrderReturn) error
	InsertReturnedItem(ctx context.Context, ri *models.ReturnedItem) error
	ReturnForUpdate(ctx context.Context, returnID int64) (*models.OrderReturn, error)
	ReturnedItems(ctx context.Context, returnID int64) ([]models.ReturnedItem, error)
	OrderByID(ctx context.Context, orderID int64) (*models.Order, error)
	UpdateReturnStatus(ctx context.Context, returnID int64, status string) error

	// ledger
	InsertTransaction(ctx context.Context, t *models.UserTransaction) error
}

// queries implements Querier against any sqlx execution context (the pool
// or an open transaction).
type queries struct {
	ext sqlx.ExtContext
}

type Store struct {
	db *sqlx.DB
	queries
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, queries: queries{ext: db}}, nil
}

// RunMigrations applies the SQL migrations under dir.
func (s *Store) RunMigrations(dir string) error {
	driver, err := postgres.WithInstance(s.db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", dir), "postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// InTx runs fn inside one database transaction. Any error from fn rolls
// back every write issued through the Querier it received.
func (s *Store) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&queries{ext: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

// ProductsByIDs retrieves the non-deleted products among ids
func (q *queries) ProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?) AND is_deleted = FALSE", ids)
	if err != nil {
		return nil, err
	}
	query = q.ext.Rebind(query)

	var products []models.Product
	err = sqlx.SelectContext(ctx, q.ext, &products, query, args...)
	return products, err
}

// ProductByID retrieves a product by ID
func (q *queries) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := sqlx.GetContext(ctx, q.ext, &product,
		"SELECT * FROM products WHERE id = $1 AND is_deleted = FALSE", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ProductForMerchant retrieves a product owned by merchantID
func (q *queries) ProductForMerchant(ctx context.Context, id, merchantID int64) (*models.Product, error) {
	var product models.Product
	err := sqlx.GetContext(ctx, q.ext, &product,
		"SELECT * FROM products WHERE id = $1 AND merchant_id = $2 AND is_deleted = FALSE", id, merchantID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d for merchant %d: %w", id, merchantID, sql.ErrNoRows)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// InsertProduct creates a new product
func (q *queries) InsertProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (merchant_id, name, price, stock)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return sqlx.GetContext(ctx, q.ext, p, query, p.MerchantID, p.Name, p.Price, p.Stock)
}

// UpdateProduct writes name, price and stock of an existing product
func (q *queries) UpdateProduct(ctx context.Context, p *models.Product) error {
	_, err := q.ext.ExecContext(ctx,
		"UPDATE products SET name = $1, price = $2, stock = $3, updated_at = NOW() WHERE id = $4 AND merchant_id = $5",
		p.Name, p.Price, p.Stock, p.ID, p.MerchantID)
	return err
}

// SoftDeleteProduct marks a product deleted without removing the row, so
// historical order lines keep resolving.
func (q *queries) SoftDeleteProduct(ctx context.Context, id, merchantID int64) error {
	res, err := q.ext.ExecContext(ctx,
		"UPDATE products SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1 AND merchant_id = $2",
		id, merchantID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product %d for merchant %d: %w", id, merchantID, sql.ErrNoRows)
	}
	return nil
}

// IncrementProductStock adds qty back to a product's stock
func (q *queries) IncrementProductStock(ctx context.Context, productID int64, qty int) error {
	_, err := q.ext.ExecContext(ctx,
		"UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2",
		qty, productID)
	return err
}

// InsertAsset creates a new asset row
func (q *queries) InsertAsset(ctx context.Context, a *models.Asset) error {
	query := `
		INSERT INTO assets (file_id, url, file_type, file_size_kb, owner_id, product_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return sqlx.GetContext(ctx, q.ext, a, query,
		a.FileID, a.URL, a.FileType, a.FileSizeInKB, a.OwnerID, a.ProductID)
}

// AssetsByProduct retrieves the assets attached to a product and owned by
// ownerID
func (q *queries) AssetsByProduct(ctx context.Context, productID, ownerID int64) ([]models.Asset, error) {
	var assets []models.Asset
	err := sqlx.SelectContext(ctx, q.ext, &assets,
		"SELECT * FROM assets WHERE product_id = $1 AND owner_id = $2", productID, ownerID)
	return assets, err
}

// DeleteAssetsByProduct removes the asset rows for a product
func (q *queries) DeleteAssetsByProduct(ctx context.Context, productID, ownerID int64) error {
	_, err := q.ext.ExecContext(ctx,
		"DELETE FROM assets WHERE product_id = $1 AND owner_id = $2", productID, ownerID)
	return err
}

// Products retrieves a catalog page, optionally filtered by name
func (s *Store) Products(ctx context.Context, name string, limit, offset int) ([]models.Product, error) {
	var products []models.Product
	if name != "" {
		err := s.db.SelectContext(ctx, &products,
			"SELECT * FROM products WHERE is_deleted = FALSE AND name ILIKE '%' || $1 || '%' ORDER BY id DESC LIMIT $2 OFFSET $3",
			name, limit, offset)
		return products, err
	}
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE is_deleted = FALSE ORDER BY id DESC LIMIT $1 OFFSET $2",
		limit, offset)
	return products, err
}

// CountProducts counts the catalog rows matching the name filter
func (s *Store) CountProducts(ctx context.Context, name string) (int64, error) {
	var count int64
	if name != "" {
		err := s.db.GetContext(ctx, &count,
			"SELECT COUNT(*) FROM products WHERE is_deleted = FALSE AND name ILIKE '%' || $1 || '%'", name)
		return count, err
	}
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM products WHERE is_deleted = FALSE")
	return count, err
}
