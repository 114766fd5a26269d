package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"commerce-service/internal/effects"
	"commerce-service/internal/filestore"
	"commerce-service/internal/models"
	"commerce-service/internal/store"
	"commerce-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductService handles catalog operations. Asset replacement is the one
// workflow here that mixes a database transaction with an external,
// non-transactional system: remote file deletions are queued during the
// transaction and run only after it commits.
type ProductService struct {
	store  Datastore
	files  FileStore
	cache  ProductCache
	events EventPublisher
	logger *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(store Datastore, files FileStore, cache ProductCache, events EventPublisher) *ProductService {
	return &ProductService{
		store:  store,
		files:  files,
		cache:  cache,
		events: events,
		logger: util.GetLogger(),
	}
}

// Upload is an incoming file to attach to a product
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CreateProductRequest carries the catalog fields of a new product
type CreateProductRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// UpdateProductRequest carries the mutable catalog fields; nil means keep
type UpdateProductRequest struct {
	Name  *string          `json:"name"`
	Price *decimal.Decimal `json:"price"`
	Stock *int             `json:"stock"`
}

// CreateProduct creates a product, uploading its asset first so the
// transaction only runs once the remote file exists. A failed transaction
// deletes the freshly uploaded file best-effort.
func (s *ProductService) CreateProduct(ctx context.Context, merchantID int64, req *CreateProductRequest, upload *Upload) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.CreateProduct")
	defer span.End()

	if req.Price.IsNegative() {
		return nil, Validationf("price must not be negative")
	}
	if req.Stock < 0 {
		return nil, Validationf("stock must not be negative")
	}

	var remote *filestore.File
	if upload != nil {
		var err error
		remote, err = s.files.Upload(ctx, upload.FileName, upload.ContentType, upload.Body, upload.Size)
		if err != nil {
			return nil, fmt.Errorf("failed to upload asset: %w", err)
		}
	}

	product := &models.Product{
		MerchantID: merchantID,
		Name:       req.Name,
		Price:      req.Price,
		Stock:      req.Stock,
	}
	err := s.store.InTx(ctx, func(q store.Querier) error {
		if err := q.InsertProduct(ctx, product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		if remote != nil {
			asset := &models.Asset{
				FileID:       remote.FileID,
				URL:          remote.URL,
				FileType:     upload.ContentType,
				FileSizeInKB: remote.SizeInKB,
				OwnerID:      merchantID,
				ProductID:    product.ID,
			}
			if err := q.InsertAsset(ctx, asset); err != nil {
				return fmt.Errorf("failed to create asset: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if remote != nil {
			if derr := s.files.Delete(ctx, remote.FileID); derr != nil {
				s.logger.Error("Failed to delete orphaned remote file",
					zap.String("file_id", remote.FileID),
					zap.Error(derr))
			}
		}
		return nil, err
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.Int64("merchant_id", merchantID))
	return product, nil
}

// GetProduct reads a product through the cache
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if cached, err := s.cache.Product(ctx, id); err == nil && cached != nil {
		util.ProductCacheHitsTotal.Inc()
		return cached, nil
	} else if err != nil {
		s.logger.Warn("Product cache read failed", zap.Int64("product_id", id), zap.Error(err))
	}
	util.ProductCacheMissesTotal.Inc()

	product, err := s.store.ProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetProduct(ctx, product); err != nil {
		s.logger.Warn("Product cache write failed", zap.Int64("product_id", id), zap.Error(err))
	}
	return product, nil
}

// ListProducts retrieves a catalog page, optionally filtered by name
func (s *ProductService) ListProducts(ctx context.Context, name string, page, limit int) (*Page, error) {
	offset := (page - 1) * limit

	products, err := s.store.Products(ctx, name, limit, offset)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountProducts(ctx, name)
	if err != nil {
		return nil, err
	}

	return &Page{Data: products, Page: page, Limit: limit, Count: count}, nil
}

// UpdateProduct applies catalog edits and, when a new file is supplied,
// replaces the product's assets. The old asset rows are deleted inside the
// transaction; the remote file deletions are queued and run only after the
// commit succeeds, so a rollback never orphans a remote deletion.
func (s *ProductService) UpdateProduct(ctx context.Context, merchantID, productID int64, req *UpdateProductRequest, upload *Upload) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.UpdateProduct")
	defer span.End()

	if req.Price != nil && req.Price.IsNegative() {
		return nil, Validationf("price must not be negative")
	}
	if req.Stock != nil && *req.Stock < 0 {
		return nil, Validationf("stock must not be negative")
	}

	var remote *filestore.File
	if upload != nil {
		var err error
		remote, err = s.files.Upload(ctx, upload.FileName, upload.ContentType, upload.Body, upload.Size)
		if err != nil {
			return nil, fmt.Errorf("failed to upload asset: %w", err)
		}
	}

	queue := effects.NewQueue()
	var product *models.Product
	err := s.store.InTx(ctx, func(q store.Querier) error {
		var err error
		product, err = q.ProductForMerchant(ctx, productID, merchantID)
		if err != nil {
			return err
		}

		if remote != nil {
			old, err := q.AssetsByProduct(ctx, productID, merchantID)
			if err != nil {
				return fmt.Errorf("failed to load assets: %w", err)
			}
			if err := q.DeleteAssetsByProduct(ctx, productID, merchantID); err != nil {
				return fmt.Errorf("failed to delete assets: %w", err)
			}
			for _, a := range old {
				fileID := a.FileID
				queue.Add("delete remote file", func(ctx context.Context) error {
					return s.files.Delete(ctx, fileID)
				})
			}

			asset := &models.Asset{
				FileID:       remote.FileID,
				URL:          remote.URL,
				FileType:     upload.ContentType,
				FileSizeInKB: remote.SizeInKB,
				OwnerID:      merchantID,
				ProductID:    productID,
			}
			if err := q.InsertAsset(ctx, asset); err != nil {
				return fmt.Errorf("failed to create asset: %w", err)
			}
		}

		if req.Name != nil {
			product.Name = *req.Name
		}
		if req.Price != nil {
			product.Price = *req.Price
		}
		if req.Stock != nil {
			product.Stock = *req.Stock
		}
		return q.UpdateProduct(ctx, product)
	})
	if err != nil {
		if remote != nil {
			if derr := s.files.Delete(ctx, remote.FileID); derr != nil {
				s.logger.Error("Failed to delete orphaned remote file",
					zap.String("file_id", remote.FileID),
					zap.Error(derr))
			}
		}
		return nil, err
	}

	for _, runErr := range queue.RunAll(ctx) {
		util.SideEffectsFailedTotal.WithLabelValues("delete remote file").Inc()
		s.logger.Warn("Post-commit cleanup failed", zap.Error(runErr))
	}

	if err := s.cache.InvalidateProduct(ctx, productID); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.Int64("product_id", productID), zap.Error(err))
	}
	s.publishProductUpdated(ctx, productID)

	return product, nil
}

// DeleteProduct soft-deletes a product so historical order lines keep
// resolving against it.
func (s *ProductService) DeleteProduct(ctx context.Context, merchantID, productID int64) error {
	if err := s.store.SoftDeleteProduct(ctx, productID, merchantID); err != nil {
		return err
	}

	if err := s.cache.InvalidateProduct(ctx, productID); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.Int64("product_id", productID), zap.Error(err))
	}
	s.publishProductUpdated(ctx, productID)
	return nil
}

// SyncCatalogCache warms the product cache from the first catalog pages.
// Failures are logged; a cold cache only costs extra reads.
func (s *ProductService) SyncCatalogCache(ctx context.Context) error {
	const pageSize = 200

	warmed := 0
	for page := 1; ; page++ {
		products, err := s.store.Products(ctx, "", pageSize, (page-1)*pageSize)
		if err != nil {
			return fmt.Errorf("failed to load catalog page %d: %w", page, err)
		}
		for i := range products {
			if err := s.cache.SetProduct(ctx, &products[i]); err != nil {
				s.logger.Warn("Product cache write failed",
					zap.Int64("product_id", products[i].ID),
					zap.Error(err))
				continue
			}
			warmed++
		}
		if len(products) < pageSize {
			break
		}
	}

	s.logger.Info("Catalog cache warmed", zap.Int("count", warmed))
	return nil
}

func (s *ProductService) publishProductUpdated(ctx context.Context, productID int64) {
	event := &models.ProductUpdatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeProductUpdated,
			Timestamp: time.Now(),
		},
		ProductID: productID,
	}
	if err := s.events.PublishProductUpdated(ctx, event); err != nil {
		s.logger.Error("Failed to publish ProductUpdated event", zap.Error(err))
	}
}
