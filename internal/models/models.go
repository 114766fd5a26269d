package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents an account. Password handling lives in the auth gateway;
// only the fields the workflows need are mapped here.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Product represents a product in the catalog
type Product struct {
	ID         int64           `db:"id" json:"id"`
	MerchantID int64           `db:"merchant_id" json:"merchant_id"`
	Name       string          `db:"name" json:"name"`
	Price      decimal.Decimal `db:"price" json:"price"`
	Stock      int             `db:"stock" json:"stock"`
	IsDeleted  bool            `db:"is_deleted" json:"-"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// Asset represents a file stored at the remote storage provider and
// attached to a product.
type Asset struct {
	ID           int64     `db:"id" json:"id"`
	FileID       string    `db:"file_id" json:"file_id"`
	URL          string    `db:"url" json:"url"`
	FileType     string    `db:"file_type" json:"file_type"`
	FileSizeInKB int64     `db:"file_size_kb" json:"file_size_kb"`
	OwnerID      int64     `db:"owner_id" json:"owner_id"`
	ProductID    int64     `db:"product_id" json:"product_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Order represents a customer order
type Order struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// OrderProduct is a line item of an order. PricePerItem is a snapshot of
// the catalog price taken at order creation and is never re-read from the
// live product, so historical orders survive catalog price changes.
// Qty is the only mutable field; approved returns decrement it.
type OrderProduct struct {
	OrderID      int64           `db:"order_id" json:"order_id"`
	ProductID    int64           `db:"product_id" json:"product_id"`
	Qty          int             `db:"qty" json:"qty"`
	PricePerItem decimal.Decimal `db:"price_per_item" json:"price_per_item"`
}

// OrderReturn represents a return request against an order
type OrderReturn struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ReturnedItem represents one returned product within a return
type ReturnedItem struct {
	ReturnID  int64 `db:"return_id" json:"return_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Qty       int   `db:"qty" json:"qty"`
}

// UserTransaction is one ledger entry. The ledger is append-only and is
// the system of record for monetary movement; rows are never updated or
// deleted.
type UserTransaction struct {
	ID        int64           `db:"id" json:"id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Type      string          `db:"type" json:"type"`
	OrderID   *int64          `db:"order_id" json:"order_id,omitempty"`
	ReturnID  *int64          `db:"return_id" json:"return_id,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// OrderDetail is the full order view returned by the order endpoints
type OrderDetail struct {
	Order        Order             `json:"order"`
	Products     []OrderProduct    `json:"products"`
	Returns      []ReturnDetail    `json:"returns"`
	Transactions []UserTransaction `json:"transactions"`
}

// ReturnDetail is a return with its items
type ReturnDetail struct {
	Return OrderReturn    `json:"return"`
	Items  []ReturnedItem `json:"items"`
}

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// Return statuses. PENDING is the only non-terminal state; once a return
// reaches REFUND or REJECTED no further transition is permitted.
const (
	ReturnStatusPending  = "PENDING"
	ReturnStatusRefund   = "REFUND"
	ReturnStatusRejected = "REJECTED"
)

// Ledger entry types
const (
	TransactionTypeDebit  = "DEBIT"
	TransactionTypeCredit = "CREDIT"
)

// User roles supplied by the authenticating gateway
const (
	RoleCustomer = "CUSTOMER"
	RoleMerchant = "MERCHANT"
	RoleAdmin    = "ADMIN"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// TerminalReturnStatus reports whether s is a terminal return status.
func TerminalReturnStatus(s string) bool {
	return s == ReturnStatusRefund || s == ReturnStatusRejected
}
