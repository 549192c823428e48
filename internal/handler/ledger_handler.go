package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/middleware"
	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/internal/service"
	"github.com/noah-isme/sma-finance-api/pkg/response"
)

type ledgerService interface {
	Assign(ctx context.Context, req service.AssignObligationRequest) (string, error)
	Collect(ctx context.Context, req service.CollectFeeRequest) (string, error)
	List(ctx context.Context, filter service.ObligationFilter) ([]dto.ObligationView, error)
	Get(ctx context.Context, id string) (*dto.ObligationView, error)
	Payments(ctx context.Context, obligationID string) ([]models.FeePayment, error)
	Stats(ctx context.Context) (*dto.FeeStats, error)
}

// LedgerHandler exposes student fee obligations and collection.
type LedgerHandler struct {
	ledger ledgerService
}

// NewLedgerHandler constructs a LedgerHandler.
func NewLedgerHandler(ledger ledgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

type obligationIDResponse struct {
	ID string `json:"id"`
}

// Assign godoc
// @Summary Assign a fee master to a student
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.AssignObligationRequest true "Obligation payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/obligations [post]
func (h *LedgerHandler) Assign(c *gin.Context) {
	var req service.AssignObligationRequest
	if !bindJSON(c, &req, "invalid obligation payload") {
		return
	}
	id, err := h.ledger.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, obligationIDResponse{ID: id})
}

// Collect godoc
// @Summary Record a fee payment
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.CollectFeeRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/collect [post]
func (h *LedgerHandler) Collect(c *gin.Context) {
	var req service.CollectFeeRequest
	if !bindJSON(c, &req, "invalid payment payload") {
		return
	}
	req.RecordedBy = actorID(c)
	id, err := h.ledger.Collect(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, obligationIDResponse{ID: id})
}

// List godoc
// @Summary List student fee obligations
// @Tags Fees
// @Produce json
// @Param studentId query string false "Student ID"
// @Param status query string false "unpaid, partial or paid"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} response.Envelope
// @Router /fees/obligations [get]
func (h *LedgerHandler) List(c *gin.Context) {
	views, err := h.ledger.List(c.Request.Context(), service.ObligationFilter{
		StudentID: c.Query("studentId"),
		Status:    c.Query("status"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pagination := pageOf(c, views)
	response.Paged(c, page, len(page), pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get one obligation
// @Tags Fees
// @Produce json
// @Param id path string true "Obligation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/obligations/{id} [get]
func (h *LedgerHandler) Get(c *gin.Context) {
	view, err := h.ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Payments godoc
// @Summary List the payment events of an obligation
// @Tags Fees
// @Produce json
// @Param id path string true "Obligation ID"
// @Success 200 {object} response.Envelope
// @Router /fees/obligations/{id}/payments [get]
func (h *LedgerHandler) Payments(c *gin.Context) {
	payments, err := h.ledger.Payments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, payments, len(payments), nil)
}

// Stats godoc
// @Summary Fee ledger statistics
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/stats [get]
func (h *LedgerHandler) Stats(c *gin.Context) {
	stats, err := h.ledger.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, middleware.ExtractMeta(c))
}
