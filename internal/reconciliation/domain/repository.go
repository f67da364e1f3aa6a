package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	CompanyID            snowflake.ID
	OrderID              snowflake.ID
	InvoiceID            snowflake.ID
	ReconciliationStatus string
	PaymentMethod        string
	DateFrom             *time.Time
	DateTo               *time.Time
	Cursor               *PaymentCursor
	Limit                int
}

type PaymentCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

// Repository methods take the *gorm.DB explicitly so callers can run them
// inside a transaction. The ForUpdate variants take a row-level lock that is
// held until the surrounding transaction ends.
type Repository interface {
	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindPayment(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*Payment, error)
	FindPaymentForUpdate(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*Payment, error)
	ListPayments(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Payment, error)
	UpdatePayment(ctx context.Context, db *gorm.DB, payment *Payment) error
	DeletePayment(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	FindCompanyStatus(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (string, error)
	FindOrderForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindInvoiceForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	SumPaymentsForOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (int64, error)
	SumPaymentsForInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (int64, error)
	SetOrderPaymentStatus(ctx context.Context, db *gorm.DB, orderID snowflake.ID, status string) error
	SetInvoiceAggregates(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, paidAmount int64, status string) error
}
