package worker

import (
	"context"

	"commerce-service/internal/broker"
	"commerce-service/internal/models"
	"commerce-service/internal/util"

	"go.uber.org/zap"
)

// ProductCache is the cache surface the worker invalidates.
type ProductCache interface {
	InvalidateProduct(ctx context.Context, id int64) error
}

// CacheWorker consumes domain events and keeps the product cache honest.
// Refunded returns restock products, and product edits change catalog
// fields; both make the cached copy stale.
type CacheWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	cache        ProductCache
	logger       *zap.Logger
}

// NewCacheWorker creates a new cache worker
func NewCacheWorker(consumer *broker.Consumer, cache ProductCache) *CacheWorker {
	w := &CacheWorker{
		consumer: consumer,
		cache:    cache,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnReturnResolved(w.handleReturnResolved)
	eventHandler.OnProductUpdated(w.handleProductUpdated)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *CacheWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting cache worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CacheWorker) Stop() error {
	w.logger.Info("Stopping cache worker")
	return w.consumer.Close()
}

func (w *CacheWorker) handleReturnResolved(ctx context.Context, event *models.ReturnResolvedEvent) error {
	if event.Status != models.ReturnStatusRefund {
		return nil
	}
	for _, item := range event.Items {
		if err := w.cache.InvalidateProduct(ctx, item.ProductID); err != nil {
			w.logger.Warn("Product cache invalidation failed",
				zap.Int64("product_id", item.ProductID),
				zap.Error(err))
		}
	}
	return nil
}

func (w *CacheWorker) handleProductUpdated(ctx context.Context, event *models.ProductUpdatedEvent) error {
	if err := w.cache.InvalidateProduct(ctx, event.ProductID); err != nil {
		w.logger.Warn("Product cache invalidation failed",
			zap.Int64("product_id", event.ProductID),
			zap.Error(err))
	}
	return nil
}
