package service

import (
	"context"

	"commerce-service/internal/util"

	"go.uber.org/zap"
)

// TransactionService exposes read access to the ledger. Entries are only
// ever written by the order and return workflows.
type TransactionService struct {
	store  Datastore
	logger *zap.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(store Datastore) *TransactionService {
	return &TransactionService{store: store, logger: util.GetLogger()}
}

// ListMine retrieves a page of the user's ledger entries, newest first
func (s *TransactionService) ListMine(ctx context.Context, userID int64, page, limit int) (*Page, error) {
	offset := (page - 1) * limit

	txs, err := s.store.TransactionsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return &Page{Data: txs, Page: page, Limit: limit, Count: int64(len(txs))}, nil
}

// ListAll retrieves a page of all ledger entries (admin operation)
func (s *TransactionService) ListAll(ctx context.Context, page, limit int) (*Page, error) {
	offset := (page - 1) * limit

	txs, err := s.store.Transactions(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	return &Page{Data: txs, Page: page, Limit: limit, Count: int64(len(txs))}, nil
}
