package service

import (
	"context"
	"io"

	"commerce-service/internal/filestore"
	"commerce-service/internal/models"
	"commerce-service/internal/store"
)

// Datastore is the data-access surface the services run on. *store.Store
// satisfies it; tests substitute an in-memory fake.
type Datastore interface {
	store.Querier

	// InTx runs fn as one atomic unit; any error rolls back every write
	// issued through the Querier fn received.
	InTx(ctx context.Context, fn func(q store.Querier) error) error

	Products(ctx context.Context, name string, limit, offset int) ([]models.Product, error)
	CountProducts(ctx context.Context, name string) (int64, error)
	OrdersByUser(ctx context.Context, userID int64, limit, offset int) ([]models.Order, error)
	CountOrdersByUser(ctx context.Context, userID int64) (int64, error)
	TransactionsByUser(ctx context.Context, userID int64, limit, offset int) ([]models.UserTransaction, error)
	Transactions(ctx context.Context, limit, offset int) ([]models.UserTransaction, error)
}

// EventPublisher publishes domain events after a workflow commits.
// Publish failures are logged and never fail the triggering request.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishReturnRequested(ctx context.Context, event *models.ReturnRequestedEvent) error
	PublishReturnResolved(ctx context.Context, event *models.ReturnResolvedEvent) error
	PublishProductUpdated(ctx context.Context, event *models.ProductUpdatedEvent) error
}

// FileStore is the remote asset storage provider.
type FileStore interface {
	Upload(ctx context.Context, fileName, contentType string, r io.Reader, size int64) (*filestore.File, error)
	Delete(ctx context.Context, fileID string) error
}

// ProductCache caches catalog reads.
type ProductCache interface {
	Product(ctx context.Context, id int64) (*models.Product, error)
	SetProduct(ctx context.Context, p *models.Product) error
	InvalidateProduct(ctx context.Context, id int64) error
}

// Page is a paginated listing response.
type Page struct {
	Data  interface{} `json:"data"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
	Count int64       `json:"count"`
}
