// Package domain contains core types for the reconciliation service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Order payment statuses. The two-state model is deliberate: partial payment
// keeps an order pending until it is covered in full.
const (
	OrderPaymentStatusPending = "pending"
	OrderPaymentStatusPaid    = "paid"
)

// Invoice lifecycle statuses. paid and partially_paid are derived; the rest
// are explicit transitions owned by other flows.
const (
	InvoiceStatusDraft         = "draft"
	InvoiceStatusSent          = "sent"
	InvoiceStatusViewed        = "viewed"
	InvoiceStatusPaid          = "paid"
	InvoiceStatusPartiallyPaid = "partially_paid"
	InvoiceStatusOverdue       = "overdue"
	InvoiceStatusVoid          = "void"
)

// Payment reconciliation statuses. Any status may be revisited; there is no
// terminal state.
const (
	ReconciliationStatusUnreconciled  = "unreconciled"
	ReconciliationStatusReconciled    = "reconciled"
	ReconciliationStatusDisputed      = "disputed"
	ReconciliationStatusPendingReview = "pending_review"
)

// ValidReconciliationStatus reports whether s is a known reconciliation status.
func ValidReconciliationStatus(s string) bool {
	switch s {
	case ReconciliationStatusUnreconciled, ReconciliationStatusReconciled,
		ReconciliationStatusDisputed, ReconciliationStatusPendingReview:
		return true
	}
	return false
}

// Order carries a derived payment status whose only legitimate writer is the
// reconciliation service. Amounts are integer minor units.
type Order struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID     snowflake.ID `gorm:"column:company_id;not null;index" json:"company_id"`
	OrderNumber   string       `gorm:"column:order_number" json:"order_number"`
	TotalAmount   int64        `gorm:"column:total_amount;not null" json:"total_amount"`
	PaymentStatus string       `gorm:"column:payment_status;not null;default:'pending'" json:"payment_status"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

// Invoice carries two derived fields, paid_amount and the paid/partially_paid
// statuses, with the same single-writer rule as Order.PaymentStatus.
type Invoice struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID     snowflake.ID `gorm:"column:company_id;not null;index" json:"company_id"`
	InvoiceNumber string       `gorm:"column:invoice_number" json:"invoice_number"`
	TotalAmount   int64        `gorm:"column:total_amount;not null" json:"total_amount"`
	PaidAmount    int64        `gorm:"column:paid_amount;not null;default:0" json:"paid_amount"`
	Status        string       `gorm:"column:status;not null;default:'draft'" json:"status"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Payment may reference at most one order and at most one invoice. Its
// company always equals the company that owns the referenced rows, or the
// recorder's company when neither is set.
type Payment struct {
	ID                   snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID            snowflake.ID      `gorm:"column:company_id;not null;index" json:"company_id"`
	OrderID              *snowflake.ID     `gorm:"column:order_id;index" json:"order_id,omitempty"`
	InvoiceID            *snowflake.ID     `gorm:"column:invoice_id;index" json:"invoice_id,omitempty"`
	Amount               int64             `gorm:"column:amount;not null" json:"amount"`
	PaymentMethod        string            `gorm:"column:payment_method;not null" json:"payment_method"`
	PaymentType          string            `gorm:"column:payment_type" json:"payment_type"`
	PaymentDate          time.Time         `gorm:"column:payment_date;not null" json:"payment_date"`
	ReceiptNumber        string            `gorm:"column:receipt_number;uniqueIndex" json:"receipt_number"`
	RecordedByID         snowflake.ID      `gorm:"column:recorded_by_id;not null" json:"recorded_by_id"`
	ReconciliationStatus string            `gorm:"column:reconciliation_status;not null;default:'unreconciled'" json:"reconciliation_status"`
	ReconciledByID       *snowflake.ID     `gorm:"column:reconciled_by_id" json:"reconciled_by_id,omitempty"`
	ReconciliationDate   *time.Time        `gorm:"column:reconciliation_date" json:"reconciliation_date,omitempty"`
	Notes                string            `gorm:"column:notes" json:"notes,omitempty"`
	Metadata             datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt            time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }
