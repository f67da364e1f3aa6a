package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/dealerdesk/platform/internal/reconciliation/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// lockForUpdate adds a row-level lock. sqlite has no FOR UPDATE; its single
// writer already serializes the aggregate recompute.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindPayment(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*domain.Payment, error) {
	return r.findPayment(ctx, db.WithContext(ctx), companyID, id)
}

func (r *repo) FindPaymentForUpdate(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*domain.Payment, error) {
	return r.findPayment(ctx, lockForUpdate(db.WithContext(ctx)), companyID, id)
}

func (r *repo) findPayment(ctx context.Context, stmt *gorm.DB, companyID, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := stmt.
		Where("company_id = ? AND id = ?", companyID, id).
		Take(&payment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	stmt := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("company_id = ?", filter.CompanyID)

	if filter.OrderID != 0 {
		stmt = stmt.Where("order_id = ?", filter.OrderID)
	}
	if filter.InvoiceID != 0 {
		stmt = stmt.Where("invoice_id = ?", filter.InvoiceID)
	}
	if status := strings.TrimSpace(filter.ReconciliationStatus); status != "" {
		stmt = stmt.Where("reconciliation_status = ?", status)
	}
	if method := strings.TrimSpace(filter.PaymentMethod); method != "" {
		stmt = stmt.Where("payment_method = ?", method)
	}
	if filter.DateFrom != nil {
		stmt = stmt.Where("payment_date >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		stmt = stmt.Where("payment_date <= ?", filter.DateTo.UTC())
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) UpdatePayment(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	payment.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(payment).Error
}

func (r *repo) DeletePayment(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM payments WHERE id = ?`, id).Error
}

func (r *repo) FindCompanyStatus(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (string, error) {
	var status string
	err := db.WithContext(ctx).Raw(
		`SELECT status FROM companies WHERE id = ?`,
		companyID,
	).Scan(&status).Error
	return status, err
}

func (r *repo) FindOrderForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := lockForUpdate(db.WithContext(ctx)).
		Where("id = ?", id).
		Take(&order).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) FindInvoiceForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := lockForUpdate(db.WithContext(ctx)).
		Where("id = ?", id).
		Take(&invoice).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) SumPaymentsForOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (int64, error) {
	var sum int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = ?`,
		orderID,
	).Scan(&sum).Error
	return sum, err
}

func (r *repo) SumPaymentsForInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (int64, error) {
	var sum int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = ?`,
		invoiceID,
	).Scan(&sum).Error
	return sum, err
}

func (r *repo) SetOrderPaymentStatus(ctx context.Context, db *gorm.DB, orderID snowflake.ID, status string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UTC(),
		orderID,
	).Error
}

func (r *repo) SetInvoiceAggregates(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, paidAmount int64, status string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET paid_amount = ?, status = ?, updated_at = ? WHERE id = ?`,
		paidAmount,
		status,
		time.Now().UTC(),
		invoiceID,
	).Error
}
