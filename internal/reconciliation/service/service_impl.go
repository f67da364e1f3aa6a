package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/dealerdesk/platform/internal/identity/domain"
	"github.com/dealerdesk/platform/internal/observability/metrics"
	"github.com/dealerdesk/platform/internal/principal"
	"github.com/dealerdesk/platform/internal/reconciliation/domain"
	"github.com/dealerdesk/platform/pkg/db"
	"github.com/dealerdesk/platform/pkg/db/pagination"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Metrics *metrics.Recorder `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	metrics *metrics.Recorder
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("reconciliation.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

// Create records a payment. The owning company is resolved from the linked
// order, then the linked invoice, then the recorder's own company; any
// cross-tenant reference aborts before the payment row exists.
func (s *Service) Create(ctx context.Context, req domain.CreatePaymentRequest) (domain.Payment, error) {
	p, ok := principal.FromContext(ctx)
	if !ok {
		return domain.Payment{}, domain.ErrUnauthenticated
	}

	if req.Amount <= 0 {
		return domain.Payment{}, domain.ErrValidationFailed
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		return domain.Payment{}, domain.ErrValidationFailed
	}
	paymentDate := req.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now().UTC()
	}

	var created domain.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		companyID := p.CompanyID

		var order *domain.Order
		if id := derefID(req.OrderID); id != 0 {
			found, err := s.repo.FindOrderForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if found == nil {
				return domain.ErrNotFound
			}
			if found.CompanyID != p.CompanyID {
				return domain.ErrCrossTenantAccess
			}
			order = found
			companyID = found.CompanyID
		}

		var invoice *domain.Invoice
		if id := derefID(req.InvoiceID); id != 0 {
			found, err := s.repo.FindInvoiceForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			if found == nil {
				return domain.ErrNotFound
			}
			if found.CompanyID != p.CompanyID {
				return domain.ErrCrossTenantAccess
			}
			invoice = found
			companyID = found.CompanyID
		}

		if companyID == 0 {
			return domain.ErrForbidden
		}
		if err := s.ensureCompanyActive(ctx, tx, companyID); err != nil {
			return err
		}

		now := time.Now().UTC()
		payment := domain.Payment{
			ID:                   s.genID.Generate(),
			CompanyID:            companyID,
			Amount:               req.Amount,
			PaymentMethod:        method,
			PaymentType:          strings.TrimSpace(req.PaymentType),
			PaymentDate:          paymentDate.UTC(),
			ReceiptNumber:        uuid.NewString(),
			RecordedByID:         p.UserID,
			ReconciliationStatus: domain.ReconciliationStatusUnreconciled,
			Notes:                strings.TrimSpace(req.Notes),
			Metadata:             datatypes.JSONMap{},
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if order != nil {
			payment.OrderID = &order.ID
		}
		if invoice != nil {
			payment.InvoiceID = &invoice.ID
		}

		if err := s.repo.InsertPayment(ctx, tx, &payment); err != nil {
			return err
		}

		if order != nil {
			if err := s.refreshOrder(ctx, tx, order); err != nil {
				return err
			}
		}
		if invoice != nil {
			if err := s.refreshInvoice(ctx, tx, invoice); err != nil {
				return err
			}
		}

		created = payment
		return nil
	})
	if err != nil {
		s.observe("create", err)
		return domain.Payment{}, s.wrapTxErr(err)
	}

	s.observe("create", nil)
	return created, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	p, ok := principal.FromContext(ctx)
	if !ok {
		return domain.Payment{}, domain.ErrUnauthenticated
	}

	paymentID, err := parseID(id)
	if err != nil {
		return domain.Payment{}, domain.ErrNotFound
	}

	payment, err := s.repo.FindPayment(ctx, s.db, p.CompanyID, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment == nil {
		return domain.Payment{}, domain.ErrNotFound
	}
	return *payment, nil
}

// List is implicitly scoped to the caller's company; filters narrow the
// result but can never widen it across tenants.
func (s *Service) List(ctx context.Context, req domain.ListPaymentsRequest) (domain.ListPaymentsResponse, error) {
	p, ok := principal.FromContext(ctx)
	if !ok {
		return domain.ListPaymentsResponse{}, domain.ErrUnauthenticated
	}

	filter := domain.ListFilter{
		CompanyID:            p.CompanyID,
		ReconciliationStatus: req.ReconciliationStatus,
		PaymentMethod:        req.PaymentMethod,
		DateFrom:             req.DateFrom,
		DateTo:               req.DateTo,
	}
	if id, err := parseID(req.OrderID); err == nil {
		filter.OrderID = id
	}
	if id, err := parseID(req.InvoiceID); err == nil {
		filter.InvoiceID = id
	}

	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListPaymentsResponse{}, domain.ErrValidationFailed
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListPaymentsResponse{}, domain.ErrValidationFailed
		}
		id, err := parseID(decoded.ID)
		if err != nil {
			return domain.ListPaymentsResponse{}, domain.ErrValidationFailed
		}
		filter.Cursor = &domain.PaymentCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}
	filter.Limit = pageSize

	items, err := s.repo.ListPayments(ctx, s.db, filter)
	if err != nil {
		return domain.ListPaymentsResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.Payment) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	payments := make([]domain.Payment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payments = append(payments, *item)
	}

	resp := domain.ListPaymentsResponse{Payments: payments}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// Update patches a payment. When the amount or a link changes, the old
// link's aggregate is recomputed without this payment's contribution and the
// new link's aggregate with it, so moving a payment leaves both endpoints
// consistent.
func (s *Service) Update(ctx context.Context, id string, req domain.UpdatePaymentRequest) (domain.Payment, error) {
	p, ok := principal.FromContext(ctx)
	if !ok {
		return domain.Payment{}, domain.ErrUnauthenticated
	}

	paymentID, err := parseID(id)
	if err != nil {
		return domain.Payment{}, domain.ErrNotFound
	}
	if req.Amount != nil && *req.Amount <= 0 {
		return domain.Payment{}, domain.ErrValidationFailed
	}

	var updated domain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindPaymentForUpdate(ctx, tx, p.CompanyID, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}
		if !canMutatePayment(p, payment) {
			return domain.ErrForbidden
		}
		if err := s.ensureCompanyActive(ctx, tx, payment.CompanyID); err != nil {
			return err
		}

		oldOrderID := derefID(payment.OrderID)
		oldInvoiceID := derefID(payment.InvoiceID)

		newOrderID := oldOrderID
		if req.OrderID != nil {
			newOrderID = *req.OrderID
		}
		newInvoiceID := oldInvoiceID
		if req.InvoiceID != nil {
			newInvoiceID = *req.InvoiceID
		}

		amountChanged := req.Amount != nil && *req.Amount != payment.Amount
		orderChanged := newOrderID != oldOrderID
		invoiceChanged := newInvoiceID != oldInvoiceID

		// Lock every aggregate row this mutation touches before the
		// payment row changes, old link first.
		var oldOrder, newOrder *domain.Order
		if oldOrderID != 0 && (orderChanged || amountChanged) {
			oldOrder, err = s.repo.FindOrderForUpdate(ctx, tx, oldOrderID)
			if err != nil {
				return err
			}
		}
		if orderChanged && newOrderID != 0 {
			newOrder, err = s.repo.FindOrderForUpdate(ctx, tx, newOrderID)
			if err != nil {
				return err
			}
			if newOrder == nil {
				return domain.ErrNotFound
			}
			if newOrder.CompanyID != p.CompanyID {
				return domain.ErrCrossTenantAccess
			}
		}

		var oldInvoice, newInvoice *domain.Invoice
		if oldInvoiceID != 0 && (invoiceChanged || amountChanged) {
			oldInvoice, err = s.repo.FindInvoiceForUpdate(ctx, tx, oldInvoiceID)
			if err != nil {
				return err
			}
		}
		if invoiceChanged && newInvoiceID != 0 {
			newInvoice, err = s.repo.FindInvoiceForUpdate(ctx, tx, newInvoiceID)
			if err != nil {
				return err
			}
			if newInvoice == nil {
				return domain.ErrNotFound
			}
			if newInvoice.CompanyID != p.CompanyID {
				return domain.ErrCrossTenantAccess
			}
		}

		if req.Amount != nil {
			payment.Amount = *req.Amount
		}
		if req.PaymentMethod != nil {
			method := strings.TrimSpace(*req.PaymentMethod)
			if method == "" {
				return domain.ErrValidationFailed
			}
			payment.PaymentMethod = method
		}
		if req.PaymentType != nil {
			payment.PaymentType = strings.TrimSpace(*req.PaymentType)
		}
		if req.PaymentDate != nil {
			payment.PaymentDate = req.PaymentDate.UTC()
		}
		if req.Notes != nil {
			payment.Notes = strings.TrimSpace(*req.Notes)
		}
		payment.OrderID = idPtr(newOrderID)
		payment.InvoiceID = idPtr(newInvoiceID)

		if err := s.repo.UpdatePayment(ctx, tx, payment); err != nil {
			return err
		}

		// Old endpoint first: its sum no longer includes this payment.
		if orderChanged && oldOrder != nil {
			if err := s.refreshOrder(ctx, tx, oldOrder); err != nil {
				return err
			}
		}
		if newOrder != nil {
			if err := s.refreshOrder(ctx, tx, newOrder); err != nil {
				return err
			}
		} else if !orderChanged && amountChanged && oldOrder != nil {
			if err := s.refreshOrder(ctx, tx, oldOrder); err != nil {
				return err
			}
		}

		if invoiceChanged && oldInvoice != nil {
			if err := s.refreshInvoice(ctx, tx, oldInvoice); err != nil {
				return err
			}
		}
		if newInvoice != nil {
			if err := s.refreshInvoice(ctx, tx, newInvoice); err != nil {
				return err
			}
		} else if !invoiceChanged && amountChanged && oldInvoice != nil {
			if err := s.refreshInvoice(ctx, tx, oldInvoice); err != nil {
				return err
			}
		}

		updated = *payment
		return nil
	})
	if err != nil {
		s.observe("update", err)
		return domain.Payment{}, s.wrapTxErr(err)
	}

	s.observe("update", nil)
	return updated, nil
}

// Delete removes a payment and recomputes the linked aggregates as if the
// payment never existed.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, ok := principal.FromContext(ctx)
	if !ok {
		return domain.ErrUnauthenticated
	}

	paymentID, err := parseID(id)
	if err != nil {
		return domain.ErrNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindPaymentForUpdate(ctx, tx, p.CompanyID, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}
		if !canMutatePayment(p, payment) {
			return domain.ErrForbidden
		}
		if err := s.ensureCompanyActive(ctx, tx, payment.CompanyID); err != nil {
			return err
		}

		var order *domain.Order
		if oid := derefID(payment.OrderID); oid != 0 {
			order, err = s.repo.FindOrderForUpdate(ctx, tx, oid)
			if err != nil {
				return err
			}
		}
		var invoice *domain.Invoice
		if iid := derefID(payment.InvoiceID); iid != 0 {
			invoice, err = s.repo.FindInvoiceForUpdate(ctx, tx, iid)
			if err != nil {
				return err
			}
		}

		if err := s.repo.DeletePayment(ctx, tx, payment.ID); err != nil {
			return err
		}

		if order != nil {
			if err := s.refreshOrder(ctx, tx, order); err != nil {
				return err
			}
		}
		if invoice != nil {
			if err := s.refreshInvoice(ctx, tx, invoice); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.observe("delete", err)
		return s.wrapTxErr(err)
	}

	s.observe("delete", nil)
	return nil
}

// Reconcile moves a payment through its reconciliation states. Aggregates
// are untouched. Repeating the current status only applies a notes change;
// reconciledBy and the reconciliation date refresh when the status moves.
// Reconcile is the verification flow, so it stays available while the
// owning company is suspended.
func (s *Service) Reconcile(ctx context.Context, id string, req domain.ReconcilePaymentRequest) (domain.Payment, error) {
	p, ok := principal.FromContext(ctx)
	if !ok {
		return domain.Payment{}, domain.ErrUnauthenticated
	}
	if p.Role != principal.RoleAdmin && p.Role != principal.RoleManager {
		s.observe("reconcile", domain.ErrForbidden)
		return domain.Payment{}, domain.ErrForbidden
	}
	if !domain.ValidReconciliationStatus(req.Status) {
		return domain.Payment{}, domain.ErrValidationFailed
	}

	paymentID, err := parseID(id)
	if err != nil {
		return domain.Payment{}, domain.ErrNotFound
	}

	var updated domain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.repo.FindPaymentForUpdate(ctx, tx, p.CompanyID, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}

		changed := false
		if payment.ReconciliationStatus != req.Status {
			now := time.Now().UTC()
			payment.ReconciliationStatus = req.Status
			payment.ReconciledByID = &p.UserID
			payment.ReconciliationDate = &now
			changed = true
		}
		if notes := strings.TrimSpace(req.Notes); notes != "" && notes != payment.Notes {
			payment.Notes = notes
			changed = true
		}
		if !changed {
			updated = *payment
			return nil
		}

		if err := s.repo.UpdatePayment(ctx, tx, payment); err != nil {
			return err
		}
		updated = *payment
		return nil
	})
	if err != nil {
		s.observe("reconcile", err)
		return domain.Payment{}, s.wrapTxErr(err)
	}

	s.observe("reconcile", nil)
	return updated, nil
}

// ensureCompanyActive rejects mutations against a company that is not
// active. A suspended tenant keeps its data readable; only the verification
// flow may still write.
func (s *Service) ensureCompanyActive(ctx context.Context, tx *gorm.DB, companyID snowflake.ID) error {
	status, err := s.repo.FindCompanyStatus(ctx, tx, companyID)
	if err != nil {
		return err
	}
	if status != identitydomain.CompanyStatusActive {
		return domain.ErrCompanySuspended
	}
	return nil
}

func (s *Service) refreshOrder(ctx context.Context, tx *gorm.DB, order *domain.Order) error {
	sum, err := s.repo.SumPaymentsForOrder(ctx, tx, order.ID)
	if err != nil {
		return err
	}

	status := domain.OrderPaymentStatusPending
	if sum >= order.TotalAmount {
		status = domain.OrderPaymentStatusPaid
	}
	if status == order.PaymentStatus {
		return nil
	}
	if err := s.repo.SetOrderPaymentStatus(ctx, tx, order.ID, status); err != nil {
		return err
	}
	order.PaymentStatus = status
	return nil
}

func (s *Service) refreshInvoice(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) error {
	sum, err := s.repo.SumPaymentsForInvoice(ctx, tx, invoice.ID)
	if err != nil {
		return err
	}

	status := invoice.Status
	switch {
	case sum > 0 && sum >= invoice.TotalAmount:
		status = domain.InvoiceStatusPaid
	case sum > 0:
		status = domain.InvoiceStatusPartiallyPaid
	default:
		// A zero sum never overwrites a manually set status, but the
		// derived paid states must not survive losing their payments.
		if invoice.Status == domain.InvoiceStatusPaid || invoice.Status == domain.InvoiceStatusPartiallyPaid {
			status = domain.InvoiceStatusSent
		}
	}

	if err := s.repo.SetInvoiceAggregates(ctx, tx, invoice.ID, sum, status); err != nil {
		return err
	}
	invoice.PaidAmount = sum
	invoice.Status = status
	return nil
}

// wrapTxErr surfaces storage constraint violations as a reconciliation
// failure; domain sentinels pass through untouched.
func (s *Service) wrapTxErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrCompanySuspended),
		errors.Is(err, domain.ErrCrossTenantAccess),
		errors.Is(err, domain.ErrValidationFailed),
		errors.Is(err, domain.ErrUnauthenticated):
		return err
	}
	if db.IsConstraintErr(err) {
		s.log.Warn("reconciliation transaction aborted on constraint", zap.Error(err))
		return domain.ErrReconciliationFailed
	}
	return err
}

func (s *Service) observe(operation string, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrCompanySuspended),
		errors.Is(err, domain.ErrCrossTenantAccess):
		outcome = metrics.OutcomeDenied
	default:
		outcome = metrics.OutcomeError
	}
	s.metrics.ObservePaymentOp(operation, outcome)
}

func canMutatePayment(p *principal.Principal, payment *domain.Payment) bool {
	if p.CompanyID != payment.CompanyID {
		return false
	}
	return p.IsAdmin() || p.UserID == payment.RecordedByID
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrNotFound
	}
	return id, nil
}

func derefID(id *snowflake.ID) snowflake.ID {
	if id == nil {
		return 0
	}
	return *id
}

func idPtr(id snowflake.ID) *snowflake.ID {
	if id == 0 {
		return nil
	}
	return &id
}
