package service

import (
	"context"
	"testing"

	"commerce-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedOrder places an order of 5 shirts at 10.00 and 2 mugs at 5.50 for
// user 42 and returns the order detail plus the two products.
func seedOrder(t *testing.T, st *mockStore) (*models.OrderDetail, *models.Product, *models.Product) {
	t.Helper()
	ctx := context.Background()

	shirt := seedProduct(t, st, "shirt", "10.00", 4)
	mug := seedProduct(t, st, "mug", "5.50", 9)

	orders := NewOrderService(st, &mockPublisher{})
	detail, err := orders.CreateOrder(ctx, 42, &CreateOrderRequest{Items: []OrderItemRequest{
		{ProductID: shirt.ID, Qty: 5},
		{ProductID: mug.ID, Qty: 2},
	}})
	require.NoError(t, err)
	return detail, shirt, mug
}

func lineQty(t *testing.T, st *mockStore, orderID, productID int64) int {
	t.Helper()
	for _, op := range st.orderProducts {
		if op.OrderID == orderID && op.ProductID == productID {
			return op.Qty
		}
	}
	t.Fatalf("no order line for product %d", productID)
	return 0
}

func TestCreateReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("persists pending return and decrements the line", func(t *testing.T) {
		st := newMockStore()
		pub := &mockPublisher{}
		svc := NewReturnService(st, pub)

		order, shirt, _ := seedOrder(t, st)

		detail, err := svc.CreateReturn(ctx, 42, &CreateReturnRequest{
			OrderID: order.Order.ID,
			Items:   []ReturnItemRequest{{ProductID: shirt.ID, Qty: 3}},
		})
		require.NoError(t, err)

		require.Len(t, detail.Returns, 1)
		ret := detail.Returns[0]
		assert.Equal(t, models.ReturnStatusPending, ret.Return.Status)
		require.Len(t, ret.Items, 1)
		assert.Equal(t, shirt.ID, ret.Items[0].ProductID)
		assert.Equal(t, 3, ret.Items[0].Qty)

		assert.Equal(t, 2, lineQty(t, st, order.Order.ID, shirt.ID))

		// Stock moves only on approval.
		assert.Equal(t, 4, st.products[shirt.ID].Stock)

		require.Len(t, pub.returnRequested, 1)
		assert.Equal(t, ret.Return.ID, pub.returnRequested[0].ReturnID)
	})

	t.Run("qty above the current line is rejected with no writes", func(t *testing.T) {
		st := newMockStore()
		svc := NewReturnService(st, &mockPublisher{})

		order, shirt, mug := seedOrder(t, st)

		_, err := svc.CreateReturn(ctx, 42, &CreateReturnRequest{
			OrderID: order.Order.ID,
			Items: []ReturnItemRequest{
				{ProductID: shirt.ID, Qty: 2},
				{ProductID: mug.ID, Qty: 3},
			},
		})
		require.Error(t, err)
		assert.True(t, IsValidation(err))

		assert.Empty(t, st.returns)
		assert.Empty(t, st.returnedItems)
		assert.Equal(t, 5, lineQty(t, st, order.Order.ID, shirt.ID))
		assert.Equal(t, 2, lineQty(t, st, order.Order.ID, mug.ID))
	})

	t.Run("remaining quantity caps repeated returns", func(t *testing.T) {
		st := newMockStore()
		svc := NewReturnService(st, &mockPublisher{})

		order, shirt, _ := seedOrder(t, st)

		_, err := svc.CreateReturn(ctx, 42, &CreateReturnRequest{
			OrderID: order.Order.ID,
			Items:   []ReturnItemRequest{{ProductID: shirt.ID, Qty: 3}},
		})
		require.NoError(t, err)

		_, err = svc.CreateReturn(ctx, 42, &CreateReturnRequest{
			OrderID: order.Order.ID,
			Items:   []ReturnItemRequest{{ProductID: shirt.ID, Qty: 3}},
		})
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.Equal(t, 2, lineQty(t, st, order.Order.ID, shirt.ID))
	})

	t.Run("product outside the order is rejected", func(t *testing.T) {
		st := newMockStore()
		svc := NewReturnService(st, &mockPublisher{})

		order, _, _ := seedOrder(t, st)
		other := seedProduct(t, st, "hat", "3.00", 1)

		_, err := svc.CreateReturn(ctx, 42, &CreateReturnRequest{
			OrderID: order.Order.ID,
			Items:   []ReturnItemRequest{{ProductID: other.ID, Qty: 1}},
		})
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.Empty(t, st.returns)
	})

	t.Run("foreign order reads as missing", func(t *testing.T) {
		st := newMockStore()
		svc := NewReturnService(st, &mockPublisher{})

		order, shirt, _ := seedOrder(t, st)

		_, err := svc.CreateReturn(ctx, 43, &CreateReturnRequest{
			OrderID: order.Order.ID,
			Items:   []ReturnItemRequest{{ProductID: shirt.ID, Qty: 1}},
		})
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.Empty(t, st.returns)
	})

	t.Run("duplicate products in one request are rejected", func(t *testing.T) {
		st := newMockStore()
		svc := NewReturnService(st, &mockPublisher{})

		order, shirt, _ := seedOrder(t, st)

		_, err := svc.CreateReturn(ctx, 42, &CreateReturnRequest{
			OrderID: order.Order.ID,
			Items: []ReturnItemRequest{
				{ProductID: shirt.ID, Qty: 1},
				{ProductID: shirt.ID, Qty: 1},
			},
		})
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})
}

func TestResolveReturn(t *testing.T) {
	ctx := context.Background()

	submit := func(t *testing.T, st *mockStore, orderID, productID int64, qty int) int64 {
		t.Helper()
		svc := NewReturnService(st, &mockPublisher{})
		detail, err := svc.CreateReturn(ctx, 42, &CreateReturnRequest{
			OrderID: orderID,
			Items:   []ReturnItemRequest{{ProductID: productID, Qty: qty}},
		})
		require.NoError(t, err)
		return detail.Returns[len(detail.Returns)-1].Return.ID
	}

	t.Run("refund credits the ledger and restocks", func(t *testing.T) {
		st := newMockStore()
		pub := &mockPublisher{}
		svc := NewReturnService(st, pub)

		order, shirt, _ := seedOrder(t, st)
		returnID := submit(t, st, order.Order.ID, shirt.ID, 3)

		resolved, err := svc.ResolveReturn(ctx, returnID, models.ReturnStatusRefund)
		require.NoError(t, err)
		assert.Equal(t, models.ReturnStatusRefund, resolved.Status)

		// Order: debit. Refund: one credit of 3 x 10.00.
		require.Len(t, st.transactions, 2)
		credit := st.transactions[1]
		assert.Equal(t, models.TransactionTypeCredit, credit.Type)
		assert.Equal(t, int64(42), credit.UserID)
		assert.True(t, credit.Amount.Equal(price("30.00")), "got %s", credit.Amount)
		require.NotNil(t, credit.ReturnID)
		assert.Equal(t, returnID, *credit.ReturnID)

		assert.Equal(t, 4+3, st.products[shirt.ID].Stock)

		require.Len(t, pub.returnResolved, 1)
		assert.Equal(t, models.ReturnStatusRefund, pub.returnResolved[0].Status)
		assert.True(t, pub.returnResolved[0].RefundAmount.Equal(price("30.00")))
	})

	t.Run("rejection changes only the status", func(t *testing.T) {
		st := newMockStore()
		svc := NewReturnService(st, &mockPublisher{})

		order, shirt, _ := seedOrder(t, st)
		returnID := submit(t, st, order.Order.ID, shirt.ID, 3)

		resolved, err := svc.ResolveReturn(ctx, returnID, models.ReturnStatusRejected)
		require.NoError(t, err)
		assert.Equal(t, models.ReturnStatusRejected, resolved.Status)

		require.Len(t, st.transactions, 1)
		assert.Equal(t, models.TransactionTypeDebit, st.transactions[0].Type)
		assert.Equal(t, 4, st.products[shirt.ID].Stock)
	})

	t.Run("a terminal return cannot be resolved again", func(t *testing.T) {
		st := newMockStore()
		svc := NewReturnService(st, &mockPublisher{})

		order, shirt, _ := seedOrder(t, st)
		returnID := submit(t, st, order.Order.ID, shirt.ID, 3)

		_, err := svc.ResolveReturn(ctx, returnID, models.ReturnStatusRefund)
		require.NoError(t, err)

		_, err = svc.ResolveReturn(ctx, returnID, models.ReturnStatusRefund)
		require.Error(t, err)
		assert.True(t, IsValidation(err))

		// No second credit, no second restock.
		require.Len(t, st.transactions, 2)
		assert.Equal(t, 4+3, st.products[shirt.ID].Stock)

		_, err = svc.ResolveReturn(ctx, returnID, models.ReturnStatusRejected)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})

	t.Run("only terminal statuses are accepted", func(t *testing.T) {
		st := newMockStore()
		svc := NewReturnService(st, &mockPublisher{})

		order, shirt, _ := seedOrder(t, st)
		returnID := submit(t, st, order.Order.ID, shirt.ID, 1)

		for _, status := range []string{models.ReturnStatusPending, "APPROVED", ""} {
			_, err := svc.ResolveReturn(ctx, returnID, status)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
		}
		assert.Equal(t, models.ReturnStatusPending, st.returns[returnID].Status)
	})

	t.Run("missing return", func(t *testing.T) {
		st := newMockStore()
		svc := NewReturnService(st, &mockPublisher{})

		_, err := svc.ResolveReturn(ctx, 9999, models.ReturnStatusRefund)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})
}
