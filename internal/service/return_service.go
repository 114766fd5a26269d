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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReturnService handles the return workflows
type ReturnService struct {
	store  Datastore
	events EventPublisher
	logger *zap.Logger
}

// NewReturnService creates a new return service
func NewReturnService(store Datastore, events EventPublisher) *ReturnService {
	return &ReturnService{
		store:  store,
		events: events,
		logger: util.GetLogger(),
	}
}

// ReturnItemRequest is one returned line
type ReturnItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Qty       int   `json:"qty" binding:"required,min=1"`
}

// CreateReturnRequest represents a request to return items of an order
type CreateReturnRequest struct {
	OrderID int64               `json:"order_id" binding:"required"`
	Items   []ReturnItemRequest `json:"items" binding:"required,min=1"`
}

// CreateReturn validates the requested items against the order's current
// line quantities and persists a PENDING return with its items,
// decrementing the lines, as one atomic unit. Line quantities already
// reflect prior approved returns, so the check prevents double-returning
// the same units.
func (s *ReturnService) CreateReturn(ctx context.Context, userID int64, req *CreateReturnRequest) (*models.OrderDetail, error) {
	ctx, span := util.StartSpan(ctx, "ReturnService.CreateReturn")
	defer span.End()

	productIDs, err := distinctProductIDs(len(req.Items), func(i int) (int64, int) {
		return req.Items[i].ProductID, req.Items[i].Qty
	})
	if err != nil {
		util.ReturnsFailedTotal.WithLabelValues("invalid_items").Inc()
		return nil, err
	}

	var detail *models.OrderDetail
	err = s.store.InTx(ctx, func(q store.Querier) error {
		// Ownership is part of the lookup; a foreign order reads as missing.
		if _, err := q.OrderForUser(ctx, req.OrderID, userID); err != nil {
			return err
		}

		lines, err := q.OrderProductsForUpdate(ctx, req.OrderID, productIDs)
		if err != nil {
			return fmt.Errorf("failed to load order lines: %w", err)
		}
		if len(lines) != len(productIDs) {
			return Validationf("invalid return products")
		}

		byID := make(map[int64]*models.OrderProduct, len(lines))
		for i := range lines {
			byID[lines[i].ProductID] = &lines[i]
		}

		for _, item := range req.Items {
			line := byID[item.ProductID]
			if item.Qty > line.Qty {
				return Validationf("return qty for product %d exceeds purchased quantity", item.ProductID)
			}
		}

		ret := &models.OrderReturn{OrderID: req.OrderID, Status: models.ReturnStatusPending}
		if err := q.InsertReturn(ctx, ret); err != nil {
			return fmt.Errorf("failed to create return: %w", err)
		}

		for _, item := range req.Items {
			ri := &models.ReturnedItem{ReturnID: ret.ID, ProductID: item.ProductID, Qty: item.Qty}
			if err := q.InsertReturnedItem(ctx, ri); err != nil {
				return fmt.Errorf("failed to create returned item: %w", err)
			}
			if err := q.DecrementOrderProductQty(ctx, req.OrderID, item.ProductID, item.Qty); err != nil {
				return fmt.Errorf("failed to decrement order line: %w", err)
			}
		}

		detail, err = q.OrderDetail(ctx, req.OrderID)
		return err
	})
	if err != nil {
		if IsValidation(err) {
			util.ReturnsFailedTotal.WithLabelValues("invalid_items").Inc()
		} else if IsNotFound(err) {
			util.ReturnsFailedTotal.WithLabelValues("not_found").Inc()
		} else {
			util.ReturnsFailedTotal.WithLabelValues("db_error").Inc()
		}
		return nil, err
	}

	util.ReturnsRequestedTotal.Inc()
	s.logger.Info("Return requested",
		zap.Int64("order_id", req.OrderID),
		zap.Int64("user_id", userID))

	s.publishReturnRequested(ctx, userID, detail)

	return detail, nil
}

// ResolveReturn transitions a PENDING return to a terminal status. On
// REFUND it appends the CREDIT ledger entry and restocks the returned
// products in the same transaction; on REJECTED only the status changes.
// A return that is already terminal is rejected, never re-run.
func (s *ReturnService) ResolveReturn(ctx context.Context, returnID int64, status string) (*models.OrderReturn, error) {
	ctx, span := util.StartSpan(ctx, "ReturnService.ResolveReturn")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ReturnResolveLatency.Observe(time.Since(start).Seconds())
	}()

	if !models.TerminalReturnStatus(status) {
		return nil, Validationf("invalid target status %q", status)
	}

	var (
		resolved *models.OrderReturn
		order    *models.Order
		items    []models.ReturnedItem
		refund   decimal.Decimal
	)
	err := s.store.InTx(ctx, func(q store.Querier) error {
		ret, err := q.ReturnForUpdate(ctx, returnID)
		if err != nil {
			return err
		}
		if ret.Status != models.ReturnStatusPending {
			return Validationf("return %d is already %s", returnID, ret.Status)
		}

		if err := q.UpdateReturnStatus(ctx, returnID, status); err != nil {
			return fmt.Errorf("failed to update return status: %w", err)
		}
		ret.Status = status
		resolved = ret

		items, err = q.ReturnedItems(ctx, returnID)
		if err != nil {
			return fmt.Errorf("failed to load returned items: %w", err)
		}

		order, err = q.OrderByID(ctx, ret.OrderID)
		if err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}

		if status != models.ReturnStatusRefund {
			return nil
		}

		lines, err := q.OrderProducts(ctx, ret.OrderID)
		if err != nil {
			return fmt.Errorf("failed to load order lines: %w", err)
		}

		purchased := make([]money.PricedItem, 0, len(lines))
		for _, l := range lines {
			purchased = append(purchased, money.PricedItem{ProductID: l.ProductID, UnitPrice: l.PricePerItem})
		}
		returned := make([]money.ReturnedQty, 0, len(items))
		for _, ri := range items {
			returned = append(returned, money.ReturnedQty{ProductID: ri.ProductID, Qty: ri.Qty})
		}
		refund = money.RefundAmount(purchased, returned)

		credit := &models.UserTransaction{
			UserID:   order.UserID,
			Amount:   refund,
			Type:     models.TransactionTypeCredit,
			OrderID:  &ret.OrderID,
			ReturnID: &ret.ID,
		}
		if err := q.InsertTransaction(ctx, credit); err != nil {
			return fmt.Errorf("failed to append ledger entry: %w", err)
		}

		for _, ri := range items {
			if err := q.IncrementProductStock(ctx, ri.ProductID, ri.Qty); err != nil {
				return fmt.Errorf("failed to restock product %d: %w", ri.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.ReturnsResolvedTotal.WithLabelValues(status).Inc()
	if status == models.ReturnStatusRefund {
		util.LedgerEntriesTotal.WithLabelValues(models.TransactionTypeCredit).Inc()
	}
	s.logger.Info("Return resolved",
		zap.Int64("return_id", returnID),
		zap.String("status", status))

	s.publishReturnResolved(ctx, resolved, order, items, refund)

	return resolved, nil
}

func (s *ReturnService) publishReturnRequested(ctx context.Context, userID int64, detail *models.OrderDetail) {
	if len(detail.Returns) == 0 {
		return
	}
	latest := detail.Returns[len(detail.Returns)-1]

	event := &models.ReturnRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReturnRequested,
			Timestamp: time.Now(),
		},
		ReturnID: latest.Return.ID,
		OrderID:  detail.Order.ID,
		UserID:   userID,
		Items:    latest.Items,
	}

	if err := s.events.PublishReturnRequested(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReturnRequested event", zap.Error(err))
	}
}

func (s *ReturnService) publishReturnResolved(ctx context.Context, ret *models.OrderReturn, order *models.Order, items []models.ReturnedItem, refund decimal.Decimal) {
	event := &models.ReturnResolvedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReturnResolved,
			Timestamp: time.Now(),
		},
		ReturnID:     ret.ID,
		OrderID:      ret.OrderID,
		UserID:       order.UserID,
		Status:       ret.Status,
		RefundAmount: refund,
		Items:        items,
	}

	if err := s.events.PublishReturnResolved(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReturnResolved event", zap.Error(err))
	}
}
