package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	reconciliationdomain "github.com/dealerdesk/platform/internal/reconciliation/domain"
	"github.com/dealerdesk/platform/pkg/db/pagination"
)

type createPaymentRequest struct {
	OrderID       string     `json:"order_id"`
	InvoiceID     string     `json:"invoice_id"`
	Amount        int64      `json:"amount" binding:"required"`
	PaymentMethod string     `json:"payment_method" binding:"required"`
	PaymentType   string     `json:"payment_type"`
	PaymentDate   *time.Time `json:"payment_date"`
	Notes         string     `json:"notes"`
}

func (s *Server) CreatePayment(c *gin.Context) {
	var body createPaymentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := reconciliationdomain.CreatePaymentRequest{
		Amount:        body.Amount,
		PaymentMethod: body.PaymentMethod,
		PaymentType:   body.PaymentType,
		Notes:         body.Notes,
	}
	if body.PaymentDate != nil {
		req.PaymentDate = *body.PaymentDate
	}

	var ok bool
	if req.OrderID, ok = optionalID(body.OrderID); !ok {
		AbortWithError(c, newValidationError("order_id", "invalid_order_id", "invalid order_id"))
		return
	}
	if req.InvoiceID, ok = optionalID(body.InvoiceID); !ok {
		AbortWithError(c, newValidationError("invoice_id", "invalid_invoice_id", "invalid invoice_id"))
		return
	}

	payment, err := s.paymentSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

func (s *Server) GetPaymentByID(c *gin.Context) {
	payment, err := s.paymentSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

type listPaymentsQuery struct {
	PageToken            string `form:"page_token"`
	PageSize             int    `form:"page_size"`
	OrderID              string `form:"order_id"`
	InvoiceID            string `form:"invoice_id"`
	ReconciliationStatus string `form:"reconciliation_status"`
	PaymentMethod        string `form:"payment_method"`
	DateFrom             string `form:"date_from"`
	DateTo               string `form:"date_to"`
}

func (s *Server) ListPayments(c *gin.Context) {
	var query listPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := reconciliationdomain.ListPaymentsRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		OrderID:              strings.TrimSpace(query.OrderID),
		InvoiceID:            strings.TrimSpace(query.InvoiceID),
		ReconciliationStatus: strings.TrimSpace(query.ReconciliationStatus),
		PaymentMethod:        strings.TrimSpace(query.PaymentMethod),
	}

	if value := strings.TrimSpace(query.DateFrom); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			AbortWithError(c, newValidationError("date_from", "invalid_date_from", "invalid date_from"))
			return
		}
		req.DateFrom = &parsed
	}
	if value := strings.TrimSpace(query.DateTo); value != "" {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			AbortWithError(c, newValidationError("date_to", "invalid_date_to", "invalid date_to"))
			return
		}
		req.DateTo = &parsed
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Payments, "page_info": resp.PageInfo})
}

type updatePaymentRequest struct {
	OrderID       *string    `json:"order_id"`
	InvoiceID     *string    `json:"invoice_id"`
	Amount        *int64     `json:"amount"`
	PaymentMethod *string    `json:"payment_method"`
	PaymentType   *string    `json:"payment_type"`
	PaymentDate   *time.Time `json:"payment_date"`
	Notes         *string    `json:"notes"`
}

func (s *Server) UpdatePayment(c *gin.Context) {
	var body updatePaymentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := reconciliationdomain.UpdatePaymentRequest{
		Amount:        body.Amount,
		PaymentMethod: body.PaymentMethod,
		PaymentType:   body.PaymentType,
		PaymentDate:   body.PaymentDate,
		Notes:         body.Notes,
	}

	// An explicit empty string clears the link; absence leaves it alone.
	if body.OrderID != nil {
		id, ok := clearableID(*body.OrderID)
		if !ok {
			AbortWithError(c, newValidationError("order_id", "invalid_order_id", "invalid order_id"))
			return
		}
		req.OrderID = id
	}
	if body.InvoiceID != nil {
		id, ok := clearableID(*body.InvoiceID)
		if !ok {
			AbortWithError(c, newValidationError("invoice_id", "invalid_invoice_id", "invalid invoice_id"))
			return
		}
		req.InvoiceID = id
	}

	payment, err := s.paymentSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func (s *Server) DeletePayment(c *gin.Context) {
	if err := s.paymentSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type reconcilePaymentRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

func (s *Server) ReconcilePayment(c *gin.Context) {
	var body reconcilePaymentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	payment, err := s.paymentSvc.Reconcile(c.Request.Context(), c.Param("id"), reconciliationdomain.ReconcilePaymentRequest{
		Status: body.Status,
		Notes:  body.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

func optionalID(value string) (*snowflake.ID, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, true
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// clearableID maps an empty string to the zero ID, which the service treats
// as "clear the link".
func clearableID(value string) (*snowflake.ID, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		zero := snowflake.ID(0)
		return &zero, true
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil {
		return nil, false
	}
	return &id, true
}
