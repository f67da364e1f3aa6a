package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/dealerdesk/platform/internal/identity/domain"
	"github.com/dealerdesk/platform/internal/principal"
	"github.com/dealerdesk/platform/internal/reconciliation/domain"
	"github.com/dealerdesk/platform/internal/reconciliation/repository"
	"github.com/dealerdesk/platform/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc  domain.Service
	db   *gorm.DB
	node *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&identitydomain.Company{}, &domain.Order{}, &domain.Invoice{}, &domain.Payment{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	svc := New(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return &fixture{svc: svc, db: dbConn, node: node}
}

func (f *fixture) principal(t *testing.T, role principal.Role, companyID snowflake.ID) *principal.Principal {
	t.Helper()
	return &principal.Principal{
		UserID:      f.node.Generate(),
		Role:        role,
		CompanyID:   companyID,
		CompanyType: principal.CompanyTypeDealer,
		Status:      "active",
	}
}

func (f *fixture) seedCompany(t *testing.T, status string) snowflake.ID {
	t.Helper()
	company := identitydomain.Company{
		ID:     f.node.Generate(),
		Name:   "Prime Parts",
		Type:   "dealer",
		Status: status,
	}
	if err := f.db.Create(&company).Error; err != nil {
		t.Fatalf("failed to seed company: %v", err)
	}
	return company.ID
}

func (f *fixture) suspendCompany(t *testing.T, id snowflake.ID) {
	t.Helper()
	if err := f.db.Model(&identitydomain.Company{}).Where("id = ?", id).
		Update("status", identitydomain.CompanyStatusSuspended).Error; err != nil {
		t.Fatalf("failed to suspend company: %v", err)
	}
}

func (f *fixture) seedOrder(t *testing.T, companyID snowflake.ID, total int64) *domain.Order {
	t.Helper()
	order := domain.Order{
		ID:            f.node.Generate(),
		CompanyID:     companyID,
		TotalAmount:   total,
		PaymentStatus: domain.OrderPaymentStatusPending,
	}
	if err := f.db.Create(&order).Error; err != nil {
		t.Fatalf("failed to seed order: %v", err)
	}
	return &order
}

func (f *fixture) seedInvoice(t *testing.T, companyID snowflake.ID, total int64, status string) *domain.Invoice {
	t.Helper()
	invoice := domain.Invoice{
		ID:          f.node.Generate(),
		CompanyID:   companyID,
		TotalAmount: total,
		Status:      status,
	}
	if err := f.db.Create(&invoice).Error; err != nil {
		t.Fatalf("failed to seed invoice: %v", err)
	}
	return &invoice
}

func (f *fixture) reloadOrder(t *testing.T, id snowflake.ID) *domain.Order {
	t.Helper()
	var order domain.Order
	if err := f.db.Where("id = ?", id).Take(&order).Error; err != nil {
		t.Fatalf("failed to reload order: %v", err)
	}
	return &order
}

func (f *fixture) reloadInvoice(t *testing.T, id snowflake.ID) *domain.Invoice {
	t.Helper()
	var invoice domain.Invoice
	if err := f.db.Where("id = ?", id).Take(&invoice).Error; err != nil {
		t.Fatalf("failed to reload invoice: %v", err)
	}
	return &invoice
}

func ctxFor(p *principal.Principal) context.Context {
	return principal.WithPrincipal(context.Background(), p)
}

func TestOrderPaymentLifecycle(t *testing.T) {
	f := newFixture(t)
	companyID := f.seedCompany(t, identitydomain.CompanyStatusActive)
	p := f.principal(t, principal.RoleStaff, companyID)
	order := f.seedOrder(t, companyID, 100)

	first, err := f.svc.Create(ctxFor(p), domain.CreatePaymentRequest{
		OrderID:       &order.ID,
		Amount:        60,
		PaymentMethod: "bank_transfer",
	})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}
	if first.CompanyID != companyID {
		t.Fatalf("expected payment owned by %s, got %s", companyID, first.CompanyID)
	}
	if got := f.reloadOrder(t, order.ID).PaymentStatus; got != domain.OrderPaymentStatusPending {
		t.Fatalf("expected pending after partial payment, got %s", got)
	}

	second, err := f.svc.Create(ctxFor(p), domain.CreatePaymentRequest{
		OrderID:       &order.ID,
		Amount:        40,
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("failed to create second payment: %v", err)
	}
	if got := f.reloadOrder(t, order.ID).PaymentStatus; got != domain.OrderPaymentStatusPaid {
		t.Fatalf("expected paid once covered in full, got %s", got)
	}

	if err := f.svc.Delete(ctxFor(p), second.ID.String()); err != nil {
		t.Fatalf("failed to delete payment: %v", err)
	}
	if got := f.reloadOrder(t, order.ID).PaymentStatus; got != domain.OrderPaymentStatusPending {
		t.Fatalf("expected pending after deleting the covering payment, got %s", got)
	}
}

func TestInvoiceAggregates(t *testing.T) {
	f := newFixture(t)
	companyID := f.seedCompany(t, identitydomain.CompanyStatusActive)
	p := f.principal(t, principal.RoleStaff, companyID)
	invoice := f.seedInvoice(t, companyID, 200, domain.InvoiceStatusSent)

	partial, err := f.svc.Create(ctxFor(p), domain.CreatePaymentRequest{
		InvoiceID:     &invoice.ID,
		Amount:        50,
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	got := f.reloadInvoice(t, invoice.ID)
	if got.PaidAmount != 50 {
		t.Fatalf("expected paid amount 50, got %d", got.PaidAmount)
	}
	if got.Status != domain.InvoiceStatusPartiallyPaid {
		t.Fatalf("expected partially_paid, got %s", got.Status)
	}

	if _, err := f.svc.Create(ctxFor(p), domain.CreatePaymentRequest{
		InvoiceID:     &invoice.ID,
		Amount:        150,
		PaymentMethod: "card",
	}); err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	got = f.reloadInvoice(t, invoice.ID)
	if got.PaidAmount != 200 || got.Status != domain.InvoiceStatusPaid {
		t.Fatalf("expected fully paid invoice, got amount=%d status=%s", got.PaidAmount, got.Status)
	}

	// Deleting the partial payment drops back below the total.
	if err := f.svc.Delete(ctxFor(p), partial.ID.String()); err != nil {
		t.Fatalf("failed to delete payment: %v", err)
	}
	got = f.reloadInvoice(t, invoice.ID)
	if got.PaidAmount != 150 || got.Status != domain.InvoiceStatusPartiallyPaid {
		t.Fatalf("expected partially_paid after delete, got amount=%d status=%s", got.PaidAmount, got.Status)
	}
}

func TestInvoiceZeroSumRevertsDerivedStatusOnly(t *testing.T) {
	f := newFixture(t)
	companyID := f.seedCompany(t, identitydomain.CompanyStatusActive)
	p := f.principal(t, principal.RoleStaff, companyID)
	invoice := f.seedInvoice(t, companyID, 100, domain.InvoiceStatusSent)

	payment, err := f.svc.Create(ctxFor(p), domain.CreatePaymentRequest{
		InvoiceID:     &invoice.ID,
		Amount:        100,
		PaymentMethod: "card",
	})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}
	if got := f.reloadInvoice(t, invoice.ID).Status; got != domain.InvoiceStatusPaid {
		t.Fatalf("expected paid, got %s", got)
	}

	if err := f.svc.Delete(ctxFor(p), payment.ID.String()); err != nil {
		t.Fatalf("failed to delete payment: %v", err)
	}
	got := f.reloadInvoice(t, invoice.ID)
	if got.PaidAmount != 0 {
		t.Fatalf("expected zero paid amount, got %d", got.PaidAmount)
	}
	if got.Status != domain.InvoiceStatusSent {
		t.Fatalf("expected status to fall back to sent, got %s", got.Status)
	}
}

func TestCreatePaymentCrossTenantOrder(t *testing.T) {
	f := newFixture(t)
	mine := f.node.Generate()
	theirs := f.node.Generate()
	p := f.principal(t, principal.RoleAdmin, mine)
	order := f.seedOrder(t, theirs, 100)

	_, err := f.svc.Create(ctxFor(p), domain.CreatePaymentRequest{
		OrderID:       &order.ID,
		Amount:        10,
		PaymentMethod: "cash",
	})
	if err != domain.ErrCrossTenantAccess {
		t.Fatalf("expected ErrCrossTenantAccess even for admins, got %v", err)
	}
	if got := f.reloadOrder(t, order.ID).PaymentStatus; got != domain.OrderPaymentStatusPending {
		t.Fatalf("cross-tenant attempt must not touch the order, got %s", got)
	}
}

func TestCreatePaymentMissingOrder(t *testing.T) {
	f := newFixture(t)
	p := f.principal(t, principal.RoleStaff, f.node.Generate())
	missing := f.node.Generate()

	_, err := f.svc.Create(ctxFor(p), domain.CreatePaymentRequest{
		OrderID:       &missing,
		Amount:        10,
		PaymentMethod: "cash",
	})
	if err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreatePaymentUnlinkedDefaultsToOwnCompany(t *testing.T) {
	f := newFixture(t)
	companyID := f.seedCompany(t, identitydomain.CompanyStatusActive)
	p := f.principal(t, principal.RoleStaff, companyID)

	payment, err := f.svc.Create(ctxFor(p), domain.CreatePaymentRequest{
		Amount:        25,
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}
	if payment.CompanyID != companyID {
		t.Fatalf("expected recorder's company, got %s", payment.CompanyID)
	}
	if payment.RecordedByID != p.UserID {
		t.Fatalf("expected recorder id %s, got %s", p.UserID, payment.RecordedByID)
	}
	if payment.ReceiptNumber == "" {
		t.Fatal("expected a receipt number")
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	f := newFixture(t)
	p := f.principal(t, principal.RoleStaff, f.node.Generate())

	if _, err := f.svc.Create(ctxFor(p), domain.CreatePaymentRequest{Amount: 0, PaymentMethod: "cash"}); err != domain.ErrValidationFailed {
		t.Fatalf("expected ErrValidationFailed for zero amount, got %v", err)
	}
	if _, err := f.svc.Create(ctxFor(p), domain.CreatePaymentRequest{Amount: 10}); err != domain.ErrValidationFailed {
		t.Fatalf("expected ErrValidationFailed for missing method, got %v", err)
	}
}

func TestGetPaymentCrossTenantIsNotFound(t *testing.T) {
	f := newFixture(t)
	companyA := f.seedCompany(t, identitydomain.CompanyStatusActive)
	companyB := f.node.Generate()
	owner := f.principal(t, principal.RoleStaff, companyA)
	outsider := f.principal(t, principal.RoleAdmin, companyB)

	payment, err := f.svc.Create(ctxFor(owner), domain.CreatePaymentRequest{
		Amount:        30,
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	if _, err := f.svc.GetByID(ctxFor(outsider), payment.ID.String()); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound for cross-tenant read, got %v", err)
	}
	if _, err := f.svc.Update(ctxFor(outsider), payment.ID.String(), domain.UpdatePaymentRequest{}); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound for cross-tenant update, got %v", err)
	}
	if err := f.svc.Delete(ctxFor(outsider), payment.ID.String()); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound for cross-tenant delete, got %v", err)
	}
}

func TestListScopedToCompany(t *testing.T) {
	f := newFixture(t)
	companyA := f.seedCompany(t, identitydomain.CompanyStatusActive)
	companyB := f.seedCompany(t, identitydomain.CompanyStatusActive)
	a := f.principal(t, principal.RoleStaff, companyA)
	b := f.principal(t, principal.RoleStaff, companyB)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Create(ctxFor(a), domain.CreatePaymentRequest{Amount: 10, PaymentMethod: "cash"}); err != nil {
			t.Fatalf("failed to create payment: %v", err)
		}
	}
	if _, err := f.svc.Create(ctxFor(b), domain.CreatePaymentRequest{Amount: 10, PaymentMethod: "cash"}); err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	resp, err := f.svc.List(ctxFor(a), domain.ListPaymentsRequest{})
	if err != nil {
		t.Fatalf("failed to list payments: %v", err)
	}
	if len(resp.Payments) != 3 {
		t.Fatalf("expected 3 payments for company A, got %d", len(resp.Payments))
	}
	for _, payment := range resp.Payments {
		if payment.CompanyID != companyA {
			t.Fatalf("leaked payment from company %s", payment.CompanyID)
		}
	}
}

func TestUpdateAuthorization(t *testing.T) {
	f := newFixture(t)
	companyID := f.seedCompany(t, identitydomain.CompanyStatusActive)
	recorder := f.principal(t, principal.RoleStaff, companyID)
	otherManager := f.principal(t, principal.RoleManager, companyID)
	admin := f.principal(t, principal.RoleAdmin, companyID)

	payment, err := f.svc.Create(ctxFor(recorder), domain.CreatePaymentRequest{Amount: 10, PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	notes := "adjusted"
	// A manager who is not the recorder is not automatically authorized.
	if _, err := f.svc.Update(ctxFor(otherManager), payment.ID.String(), domain.UpdatePaymentRequest{Notes: &notes}); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden for non-recorder manager, got %v", err)
	}
	if _, err := f.svc.Update(ctxFor(recorder), payment.ID.String(), domain.UpdatePaymentRequest{Notes: &notes}); err != nil {
		t.Fatalf("recorder update failed: %v", err)
	}
	if _, err := f.svc.Update(ctxFor(admin), payment.ID.String(), domain.UpdatePaymentRequest{Notes: &notes}); err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
}

func TestUpdateAmountRecomputesAggregate(t *testing.T) {
	f := newFixture(t)
	companyID := f.seedCompany(t, identitydomain.CompanyStatusActive)
	p := f.principal(t, principal.RoleStaff, companyID)
	order := f.seedOrder(t, companyID, 100)

	payment, err := f.svc.Create(ctxFor(p), domain.CreatePaymentRequest{
		OrderID:       &order.ID,
		Amount:        60,
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	amount := int64(100)
	if _, err := f.svc.Update(ctxFor(p), payment.ID.String(), domain.UpdatePaymentRequest{Amount: &amount}); err != nil {
		t.Fatalf("failed to update amount: %v", err)
	}
	if got := f.reloadOrder(t, order.ID).PaymentStatus; got != domain.OrderPaymentStatusPaid {
		t.Fatalf("expected paid after raising amount, got %s", got)
	}

	amount = 10
	if _, err := f.svc.Update(ctxFor(p), payment.ID.String(), domain.UpdatePaymentRequest{Amount: &amount}); err != nil {
		t.Fatalf("failed to lower amount: %v", err)
	}
	if got := f.reloadOrder(t, order.ID).PaymentStatus; got != domain.OrderPaymentStatusPending {
		t.Fatalf("expected pending after lowering amount, got %s", got)
	}
}

func TestUpdateMovesPaymentBetweenOrders(t *testing.T) {
	f := newFixture(t)
	companyID := f.seedCompany(t, identitydomain.CompanyStatusActive)
	p := f.principal(t, principal.RoleStaff, companyID)
	source := f.seedOrder(t, companyID, 50)
	target := f.seedOrder(t, companyID, 50)

	payment, err := f.svc.Create(ctxFor(p), domain.CreatePaymentRequest{
		OrderID:       &source.ID,
		Amount:        50,
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}
	if got := f.reloadOrder(t, source.ID).PaymentStatus; got != domain.OrderPaymentStatusPaid {
		t.Fatalf("expected source paid, got %s", got)
	}

	if _, err := f.svc.Update(ctxFor(p), payment.ID.String(), domain.UpdatePaymentRequest{OrderID: &target.ID}); err != nil {
		t.Fatalf("failed to move payment: %v", err)
	}

	// Both endpoints must be consistent, not just the destination.
	if got := f.reloadOrder(t, source.ID).PaymentStatus; got != domain.OrderPaymentStatusPending {
		t.Fatalf("expected source pending after move, got %s", got)
	}
	if got := f.reloadOrder(t, target.ID).PaymentStatus; got != domain.OrderPaymentStatusPaid {
		t.Fatalf("expected target paid after move, got %s", got)
	}
}

func TestUpdateClearsOrderLink(t *testing.T) {
	f := newFixture(t)
	companyID := f.seedCompany(t, identitydomain.CompanyStatusActive)
	p := f.principal(t, principal.RoleStaff, companyID)
	order := f.seedOrder(t, companyID, 40)

	payment, err := f.svc.Create(ctxFor(p), domain.CreatePaymentRequest{
		OrderID:       &order.ID,
		Amount:        40,
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	var none snowflake.ID
	updated, err := f.svc.Update(ctxFor(p), payment.ID.String(), domain.UpdatePaymentRequest{OrderID: &none})
	if err != nil {
		t.Fatalf("failed to clear link: %v", err)
	}
	if updated.OrderID != nil {
		t.Fatalf("expected cleared order link, got %v", updated.OrderID)
	}
	if got := f.reloadOrder(t, order.ID).PaymentStatus; got != domain.OrderPaymentStatusPending {
		t.Fatalf("expected pending after unlinking, got %s", got)
	}
}

func TestUpdateMoveToCrossTenantOrder(t *testing.T) {
	f := newFixture(t)
	mine := f.seedCompany(t, identitydomain.CompanyStatusActive)
	theirs := f.node.Generate()
	p := f.principal(t, principal.RoleStaff, mine)
	foreign := f.seedOrder(t, theirs, 100)

	payment, err := f.svc.Create(ctxFor(p), domain.CreatePaymentRequest{Amount: 10, PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	if _, err := f.svc.Update(ctxFor(p), payment.ID.String(), domain.UpdatePaymentRequest{OrderID: &foreign.ID}); err != domain.ErrCrossTenantAccess {
		t.Fatalf("expected ErrCrossTenantAccess, got %v", err)
	}
}

func TestReconcileRoleAndIdempotency(t *testing.T) {
	f := newFixture(t)
	companyID := f.seedCompany(t, identitydomain.CompanyStatusActive)
	staff := f.principal(t, principal.RoleStaff, companyID)
	manager := f.principal(t, principal.RoleManager, companyID)

	payment, err := f.svc.Create(ctxFor(staff), domain.CreatePaymentRequest{Amount: 10, PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	if _, err := f.svc.Reconcile(ctxFor(staff), payment.ID.String(), domain.ReconcilePaymentRequest{Status: domain.ReconciliationStatusReconciled}); err != domain.ErrForbidden {
		t.Fatalf("expected ErrForbidden for staff, got %v", err)
	}

	first, err := f.svc.Reconcile(ctxFor(manager), payment.ID.String(), domain.ReconcilePaymentRequest{Status: domain.ReconciliationStatusReconciled})
	if err != nil {
		t.Fatalf("failed to reconcile: %v", err)
	}
	if first.ReconciliationStatus != domain.ReconciliationStatusReconciled {
		t.Fatalf("expected reconciled, got %s", first.ReconciliationStatus)
	}
	if first.ReconciledByID == nil || *first.ReconciledByID != manager.UserID {
		t.Fatal("expected reconciled_by to record the manager")
	}
	firstDate := first.ReconciliationDate

	time.Sleep(10 * time.Millisecond)
	second, err := f.svc.Reconcile(ctxFor(manager), payment.ID.String(), domain.ReconcilePaymentRequest{Status: domain.ReconciliationStatusReconciled})
	if err != nil {
		t.Fatalf("failed to reconcile twice: %v", err)
	}
	if !second.ReconciliationDate.Equal(*firstDate) {
		t.Fatal("repeated reconcile with same status must be a no-op")
	}
}

func TestReconcileInvalidStatus(t *testing.T) {
	f := newFixture(t)
	manager := f.principal(t, principal.RoleManager, f.node.Generate())

	if _, err := f.svc.Reconcile(ctxFor(manager), "123", domain.ReconcilePaymentRequest{Status: "settled"}); err != domain.ErrValidationFailed {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestSuspendedCompanyBlocksMutations(t *testing.T) {
	f := newFixture(t)
	companyID := f.seedCompany(t, identitydomain.CompanyStatusActive)
	staff := f.principal(t, principal.RoleStaff, companyID)
	manager := f.principal(t, principal.RoleManager, companyID)
	order := f.seedOrder(t, companyID, 100)

	payment, err := f.svc.Create(ctxFor(staff), domain.CreatePaymentRequest{
		OrderID:       &order.ID,
		Amount:        30,
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	f.suspendCompany(t, companyID)

	// Covering the balance must fail and leave the order untouched.
	if _, err := f.svc.Create(ctxFor(staff), domain.CreatePaymentRequest{
		OrderID:       &order.ID,
		Amount:        70,
		PaymentMethod: "cash",
	}); err != domain.ErrCompanySuspended {
		t.Fatalf("expected ErrCompanySuspended on create, got %v", err)
	}
	if got := f.reloadOrder(t, order.ID).PaymentStatus; got != domain.OrderPaymentStatusPending {
		t.Fatalf("suspended-company create must not touch the order, got %s", got)
	}

	amount := int64(40)
	if _, err := f.svc.Update(ctxFor(staff), payment.ID.String(), domain.UpdatePaymentRequest{Amount: &amount}); err != domain.ErrCompanySuspended {
		t.Fatalf("expected ErrCompanySuspended on update, got %v", err)
	}
	if err := f.svc.Delete(ctxFor(staff), payment.ID.String()); err != domain.ErrCompanySuspended {
		t.Fatalf("expected ErrCompanySuspended on delete, got %v", err)
	}

	// Verification stays available while the company is suspended.
	if _, err := f.svc.Reconcile(ctxFor(manager), payment.ID.String(), domain.ReconcilePaymentRequest{
		Status: domain.ReconciliationStatusReconciled,
	}); err != nil {
		t.Fatalf("reconcile during suspension failed: %v", err)
	}
}

func TestReconcileSameStatusAppliesNotes(t *testing.T) {
	f := newFixture(t)
	companyID := f.seedCompany(t, identitydomain.CompanyStatusActive)
	manager := f.principal(t, principal.RoleManager, companyID)

	payment, err := f.svc.Create(ctxFor(manager), domain.CreatePaymentRequest{Amount: 10, PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	first, err := f.svc.Reconcile(ctxFor(manager), payment.ID.String(), domain.ReconcilePaymentRequest{
		Status: domain.ReconciliationStatusReconciled,
		Notes:  "matched against statement",
	})
	if err != nil {
		t.Fatalf("failed to reconcile: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	second, err := f.svc.Reconcile(ctxFor(manager), payment.ID.String(), domain.ReconcilePaymentRequest{
		Status: domain.ReconciliationStatusReconciled,
		Notes:  "matched against june statement",
	})
	if err != nil {
		t.Fatalf("failed to reconcile twice: %v", err)
	}
	if second.Notes != "matched against june statement" {
		t.Fatalf("expected notes to be applied, got %q", second.Notes)
	}
	if !second.ReconciliationDate.Equal(*first.ReconciliationDate) {
		t.Fatal("unchanged status must not refresh the reconciliation date")
	}
}

func TestReconcileDoesNotTouchAggregates(t *testing.T) {
	f := newFixture(t)
	companyID := f.seedCompany(t, identitydomain.CompanyStatusActive)
	manager := f.principal(t, principal.RoleManager, companyID)
	order := f.seedOrder(t, companyID, 100)

	payment, err := f.svc.Create(ctxFor(manager), domain.CreatePaymentRequest{
		OrderID:       &order.ID,
		Amount:        30,
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	if _, err := f.svc.Reconcile(ctxFor(manager), payment.ID.String(), domain.ReconcilePaymentRequest{Status: domain.ReconciliationStatusDisputed}); err != nil {
		t.Fatalf("failed to reconcile: %v", err)
	}
	if got := f.reloadOrder(t, order.ID).PaymentStatus; got != domain.OrderPaymentStatusPending {
		t.Fatalf("reconcile must not change aggregates, got %s", got)
	}
}
