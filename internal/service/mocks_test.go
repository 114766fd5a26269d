package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"commerce-service/internal/filestore"
	"commerce-service/internal/models"
	"commerce-service/internal/store"
)

// mockStore is an in-memory Datastore. InTx snapshots the state before
// running the callback and restores it on error, emulating a rollback, so
// tests can assert that failed workflows persist nothing.
type mockStore struct {
	products      map[int64]*models.Product
	orders        map[int64]*models.Order
	orderProducts []models.OrderProduct
	returns       map[int64]*models.OrderReturn
	returnedItems []models.ReturnedItem
	transactions  []models.UserTransaction
	assets        []models.Asset
	nextID        int64
}

func newMockStore() *mockStore {
	return &mockStore{
		products: make(map[int64]*models.Product),
		orders:   make(map[int64]*models.Order),
		returns:  make(map[int64]*models.OrderReturn),
		nextID:   1,
	}
}

func (m *mockStore) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *mockStore) clone() *mockStore {
	c := newMockStore()
	c.nextID = m.nextID
	for k, v := range m.products {
		p := *v
		c.products[k] = &p
	}
	for k, v := range m.orders {
		o := *v
		c.orders[k] = &o
	}
	for k, v := range m.returns {
		r := *v
		c.returns[k] = &r
	}
	c.orderProducts = append([]models.OrderProduct(nil), m.orderProducts...)
	c.returnedItems = append([]models.ReturnedItem(nil), m.returnedItems...)
	c.transactions = append([]models.UserTransaction(nil), m.transactions...)
	c.assets = append([]models.Asset(nil), m.assets...)
	return c
}

func (m *mockStore) InTx(ctx context.Context, fn func(q store.Querier) error) error {
	snapshot := m.clone()
	if err := fn(m); err != nil {
		*m = *snapshot
		return err
	}
	return nil
}

// catalog

func (m *mockStore) ProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok && !p.IsDeleted {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockStore) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	if p, ok := m.products[id]; ok && !p.IsDeleted {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("product %d: %w", id, sql.ErrNoRows)
}

func (m *mockStore) ProductForMerchant(ctx context.Context, id, merchantID int64) (*models.Product, error) {
	if p, ok := m.products[id]; ok && !p.IsDeleted && p.MerchantID == merchantID {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("product %d for merchant %d: %w", id, merchantID, sql.ErrNoRows)
}

func (m *mockStore) InsertProduct(ctx context.Context, p *models.Product) error {
	p.ID = m.id()
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockStore) SoftDeleteProduct(ctx context.Context, id, merchantID int64) error {
	if p, ok := m.products[id]; ok && p.MerchantID == merchantID {
		p.IsDeleted = true
		return nil
	}
	return fmt.Errorf("product %d for merchant %d: %w", id, merchantID, sql.ErrNoRows)
}

func (m *mockStore) IncrementProductStock(ctx context.Context, productID int64, qty int) error {
	p, ok := m.products[productID]
	if !ok {
		return fmt.Errorf("product %d: %w", productID, sql.ErrNoRows)
	}
	p.Stock += qty
	return nil
}

// assets

func (m *mockStore) InsertAsset(ctx context.Context, a *models.Asset) error {
	a.ID = m.id()
	m.assets = append(m.assets, *a)
	return nil
}

func (m *mockStore) AssetsByProduct(ctx context.Context, productID, ownerID int64) ([]models.Asset, error) {
	var out []models.Asset
	for _, a := range m.assets {
		if a.ProductID == productID && a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockStore) DeleteAssetsByProduct(ctx context.Context, productID, ownerID int64) error {
	kept := m.assets[:0]
	for _, a := range m.assets {
		if a.ProductID != productID || a.OwnerID != ownerID {
			kept = append(kept, a)
		}
	}
	m.assets = append([]models.Asset(nil), kept...)
	return nil
}

// orders

func (m *mockStore) InsertOrder(ctx context.Context, o *models.Order) error {
	o.ID = m.id()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockStore) InsertOrderProduct(ctx context.Context, op *models.OrderProduct) error {
	m.orderProducts = append(m.orderProducts, *op)
	return nil
}

func (m *mockStore) OrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	if o, ok := m.orders[orderID]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, fmt.Errorf("order %d: %w", orderID, sql.ErrNoRows)
}

func (m *mockStore) OrderForUser(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	if o, ok := m.orders[orderID]; ok && o.UserID == userID {
		cp := *o
		return &cp, nil
	}
	return nil, fmt.Errorf("order %d for user %d: %w", orderID, userID, sql.ErrNoRows)
}

func (m *mockStore) OrderProducts(ctx context.Context, orderID int64) ([]models.OrderProduct, error) {
	var out []models.OrderProduct
	for _, op := range m.orderProducts {
		if op.OrderID == orderID {
			out = append(out, op)
		}
	}
	return out, nil
}

func (m *mockStore) OrderProductsForUpdate(ctx context.Context, orderID int64, productIDs []int64) ([]models.OrderProduct, error) {
	want := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	var out []models.OrderProduct
	for _, op := range m.orderProducts {
		if op.OrderID == orderID && want[op.ProductID] {
			out = append(out, op)
		}
	}
	return out, nil
}

func (m *mockStore) DecrementOrderProductQty(ctx context.Context, orderID, productID int64, qty int) error {
	for i := range m.orderProducts {
		if m.orderProducts[i].OrderID == orderID && m.orderProducts[i].ProductID == productID {
			m.orderProducts[i].Qty -= qty
			return nil
		}
	}
	return fmt.Errorf("order line (%d, %d): %w", orderID, productID, sql.ErrNoRows)
}

func (m *mockStore) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	o, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, sql.ErrNoRows)
	}
	o.Status = status
	return nil
}

func (m *mockStore) OrderDetail(ctx context.Context, orderID int64) (*models.OrderDetail, error) {
	order, err := m.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	products, _ := m.OrderProducts(ctx, orderID)

	var returnIDs []int64
	for id, r := range m.returns {
		if r.OrderID == orderID {
			returnIDs = append(returnIDs, id)
		}
	}
	sort.Slice(returnIDs, func(i, j int) bool { return returnIDs[i] < returnIDs[j] })

	var details []models.ReturnDetail
	for _, id := range returnIDs {
		items, _ := m.ReturnedItems(ctx, id)
		details = append(details, models.ReturnDetail{Return: *m.returns[id], Items: items})
	}

	var txs []models.UserTransaction
	for _, t := range m.transactions {
		if t.OrderID != nil && *t.OrderID == orderID {
			txs = append(txs, t)
		}
	}

	return &models.OrderDetail{Order: *order, Products: products, Returns: details, Transactions: txs}, nil
}

// returns

func (m *mockStore) InsertReturn(ctx context.Context, r *models.OrderReturn) error {
	r.ID = m.id()
	cp := *r
	m.returns[r.ID] = &cp
	return nil
}

func (m *mockStore) InsertReturnedItem(ctx context.Context, ri *models.ReturnedItem) error {
	m.returnedItems = append(m.returnedItems, *ri)
	return nil
}

func (m *mockStore) ReturnForUpdate(ctx context.Context, returnID int64) (*models.OrderReturn, error) {
	if r, ok := m.returns[returnID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, fmt.Errorf("return %d: %w", returnID, sql.ErrNoRows)
}

func (m *mockStore) ReturnedItems(ctx context.Context, returnID int64) ([]models.ReturnedItem, error) {
	var out []models.ReturnedItem
	for _, ri := range m.returnedItems {
		if ri.ReturnID == returnID {
			out = append(out, ri)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateReturnStatus(ctx context.Context, returnID int64, status string) error {
	r, ok := m.returns[returnID]
	if !ok {
		return fmt.Errorf("return %d: %w", returnID, sql.ErrNoRows)
	}
	r.Status = status
	return nil
}

// ledger

func (m *mockStore) InsertTransaction(ctx context.Context, t *models.UserTransaction) error {
	t.ID = m.id()
	m.transactions = append(m.transactions, *t)
	return nil
}

// listings

func (m *mockStore) Products(ctx context.Context, name string, limit, offset int) ([]models.Product, error) {
	var ids []int64
	for id, p := range m.products {
		if p.IsDeleted {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []models.Product
	for i, id := range ids {
		if i < offset || len(out) >= limit {
			continue
		}
		out = append(out, *m.products[id])
	}
	return out, nil
}

func (m *mockStore) CountProducts(ctx context.Context, name string) (int64, error) {
	ps, _ := m.Products(ctx, name, len(m.products)+1, 0)
	return int64(len(ps)), nil
}

func (m *mockStore) OrdersByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Order, error) {
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) CountOrdersByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	for _, o := range m.orders {
		if o.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) TransactionsByUser(ctx context.Context, userID int64, limit, offset int) ([]models.UserTransaction, error) {
	var out []models.UserTransaction
	for _, t := range m.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockStore) Transactions(ctx context.Context, limit, offset int) ([]models.UserTransaction, error) {
	return append([]models.UserTransaction(nil), m.transactions...), nil
}

// mockPublisher records published events.
type mockPublisher struct {
	orderCreated    []*models.OrderCreatedEvent
	returnRequested []*models.ReturnRequestedEvent
	returnResolved  []*models.ReturnResolvedEvent
	productUpdated  []*models.ProductUpdatedEvent
	err             error
}

func (m *mockPublisher) PublishOrderCreated(ctx context.Context, e *models.OrderCreatedEvent) error {
	m.orderCreated = append(m.orderCreated, e)
	return m.err
}

func (m *mockPublisher) PublishReturnRequested(ctx context.Context, e *models.ReturnRequestedEvent) error {
	m.returnRequested = append(m.returnRequested, e)
	return m.err
}

func (m *mockPublisher) PublishReturnResolved(ctx context.Context, e *models.ReturnResolvedEvent) error {
	m.returnResolved = append(m.returnResolved, e)
	return m.err
}

func (m *mockPublisher) PublishProductUpdated(ctx context.Context, e *models.ProductUpdatedEvent) error {
	m.productUpdated = append(m.productUpdated, e)
	return m.err
}

// mockFiles records remote storage calls.
type mockFiles struct {
	uploads   []string
	deletes   []string
	uploadErr error
	nextID    int
}

func (m *mockFiles) Upload(ctx context.Context, fileName, contentType string, r io.Reader, size int64) (*filestore.File, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	m.nextID++
	m.uploads = append(m.uploads, fileName)
	return &filestore.File{
		FileID:   fmt.Sprintf("file-%d", m.nextID),
		URL:      "https://cdn.test/products/" + fileName,
		SizeInKB: size / 1024,
	}, nil
}

func (m *mockFiles) Delete(ctx context.Context, fileID string) error {
	m.deletes = append(m.deletes, fileID)
	return nil
}

// mockCache is a map-backed product cache.
type mockCache struct {
	items   map[int64]*models.Product
	getErr  error
	dropped []int64
}

func newMockCache() *mockCache {
	return &mockCache{items: make(map[int64]*models.Product)}
}

func (m *mockCache) Product(ctx context.Context, id int64) (*models.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.items[id], nil
}

func (m *mockCache) SetProduct(ctx context.Context, p *models.Product) error {
	cp := *p
	m.items[p.ID] = &cp
	return nil
}

func (m *mockCache) InvalidateProduct(ctx context.Context, id int64) error {
	delete(m.items, id)
	m.dropped = append(m.dropped, id)
	return nil
}

var errBroken = errors.New("broken dependency")
