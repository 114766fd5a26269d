package service

import (
	"context"
	"fmt"
	"time"

	"commerce-service/internal/models"
	"commerce-service/internal/money"
	"commerce-service/internal/store"
	"commerce-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService handles the order workflows
type OrderService struct {
	store  Datastore
	events EventPublisher
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store Datastore, events EventPublisher) *OrderService {
	return &OrderService{
		store:  store,
		events: events,
		logger: util.GetLogger(),
	}
}

// OrderItemRequest is one requested line of a new order
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Qty       int   `json:"qty" binding:"required,min=1"`
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,min=1"`
}

// CreateOrder validates the requested products against the catalog,
// snapshots their prices, and persists the order, its line items and the
// initiating DEBIT ledger entry as one atomic unit. Stock is not
// decremented here; in this system only returns move stock.
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, req *CreateOrderRequest) (*models.OrderDetail, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	productIDs, err := distinctProductIDs(len(req.Items), func(i int) (int64, int) {
		return req.Items[i].ProductID, req.Items[i].Qty
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, err
	}

	var detail *models.OrderDetail
	err = s.store.InTx(ctx, func(q store.Querier) error {
		products, err := q.ProductsByIDs(ctx, productIDs)
		if err != nil {
			return fmt.Errorf("failed to resolve products: %w", err)
		}
		if len(products) != len(productIDs) {
			return Validationf("one or more products are invalid")
		}

		byID := make(map[int64]*models.Product, len(products))
		for i := range products {
			byID[products[i].ID] = &products[i]
		}

		lines := make([]money.Line, 0, len(req.Items))
		for _, item := range req.Items {
			lines = append(lines, money.Line{
				UnitPrice: byID[item.ProductID].Price,
				Qty:       item.Qty,
			})
		}
		total := money.TotalAmount(lines)

		order := &models.Order{UserID: userID, Status: models.OrderStatusPending}
		if err := q.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, item := range req.Items {
			op := &models.OrderProduct{
				OrderID:      order.ID,
				ProductID:    item.ProductID,
				Qty:          item.Qty,
				PricePerItem: byID[item.ProductID].Price,
			}
			if err := q.InsertOrderProduct(ctx, op); err != nil {
				return fmt.Errorf("failed to create order line: %w", err)
			}
		}

		debit := &models.UserTransaction{
			UserID:  userID,
			Amount:  total,
			Type:    models.TransactionTypeDebit,
			OrderID: &order.ID,
		}
		if err := q.InsertTransaction(ctx, debit); err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}

		detail, err = q.OrderDetail(ctx, order.ID)
		return err
	})
	if err != nil {
		if !IsValidation(err) {
			util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		} else {
			util.OrdersFailedTotal.WithLabelValues("invalid_items").Inc()
		}
		return nil, err
	}

	util.OrdersCreatedTotal.Inc()
	util.LedgerEntriesTotal.WithLabelValues(models.TransactionTypeDebit).Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", detail.Order.ID),
		zap.Int64("user_id", userID))

	s.publishOrderCreated(ctx, detail)

	return detail, nil
}

// GetOrder retrieves the full order view, scoped to its owner
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID int64) (*models.OrderDetail, error) {
	if _, err := s.store.OrderForUser(ctx, orderID, userID); err != nil {
		return nil, err
	}
	return s.store.OrderDetail(ctx, orderID)
}

// ListOrders retrieves a page of the user's orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, userID int64, page, limit int) (*Page, error) {
	offset := (page - 1) * limit

	orders, err := s.store.OrdersByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Page{Data: orders, Page: page, Limit: limit, Count: count}, nil
}

// UpdateOrderStatus sets an order's status (admin operation)
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	if !models.ValidOrderStatus(status) {
		return Validationf("invalid order status %q", status)
	}
	return s.store.UpdateOrderStatus(ctx, orderID, status)
}

func (s *OrderService) publishOrderCreated(ctx context.Context, detail *models.OrderDetail) {
	lines := make([]models.OrderLineData, 0, len(detail.Products))
	total := make([]money.Line, 0, len(detail.Products))
	for _, op := range detail.Products {
		lines = append(lines, models.OrderLineData{
			ProductID:    op.ProductID,
			Qty:          op.Qty,
			PricePerItem: op.PricePerItem,
		})
		total = append(total, money.Line{UnitPrice: op.PricePerItem, Qty: op.Qty})
	}

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:     detail.Order.ID,
		UserID:      detail.Order.UserID,
		TotalAmount: money.TotalAmount(total),
		Lines:       lines,
	}

	if err := s.events.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}
}

// distinctProductIDs validates the (productID, qty) pairs of a request and
// returns the product IDs. Duplicate products and non-positive quantities
// are rejected before any transaction is opened.
func distinctProductIDs(n int, at func(i int) (int64, int)) ([]int64, error) {
	if n == 0 {
		return nil, Validationf("at least one item is required")
	}

	ids := make([]int64, 0, n)
	seen := make(map[int64]bool, n)
	for i := 0; i < n; i++ {
		id, qty := at(i)
		if qty <= 0 {
			return nil, Validationf("invalid qty for product %d", id)
		}
		if seen[id] {
			return nil, Validationf("duplicate product %d", id)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}
