package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dealerdesk/platform/pkg/db/pagination"
)

var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrNotFound             = errors.New("not_found")
	ErrForbidden            = errors.New("forbidden")
	ErrCompanySuspended     = errors.New("company_suspended")
	ErrCrossTenantAccess    = errors.New("cross_tenant_access")
	ErrValidationFailed     = errors.New("validation_failed")
	ErrReconciliationFailed = errors.New("reconciliation_failed")
)

type CreatePaymentRequest struct {
	OrderID       *snowflake.ID
	InvoiceID     *snowflake.ID
	Amount        int64
	PaymentMethod string
	PaymentType   string
	PaymentDate   time.Time
	Notes         string
}

// UpdatePaymentRequest is a patch: nil fields are left untouched. A zero
// OrderID or InvoiceID clears the link.
type UpdatePaymentRequest struct {
	OrderID       *snowflake.ID
	InvoiceID     *snowflake.ID
	Amount        *int64
	PaymentMethod *string
	PaymentType   *string
	PaymentDate   *time.Time
	Notes         *string
}

type ListPaymentsRequest struct {
	pagination.Pagination
	OrderID              string
	InvoiceID            string
	ReconciliationStatus string
	PaymentMethod        string
	DateFrom             *time.Time
	DateTo               *time.Time
}

type ListPaymentsResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

type ReconcilePaymentRequest struct {
	Status string
	Notes  string
}

// Service applies payment mutations and keeps the derived order and invoice
// aggregates correct. Every mutation runs in a single transaction; the
// company context is resolved and verified before any row is touched.
type Service interface {
	Create(ctx context.Context, req CreatePaymentRequest) (Payment, error)
	GetByID(ctx context.Context, id string) (Payment, error)
	List(ctx context.Context, req ListPaymentsRequest) (ListPaymentsResponse, error)
	Update(ctx context.Context, id string, req UpdatePaymentRequest) (Payment, error)
	Delete(ctx context.Context, id string) error
	Reconcile(ctx context.Context, id string, req ReconcilePaymentRequest) (Payment, error)
}
