package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/internal/service"
	"github.com/noah-isme/sma-finance-api/pkg/response"
)

type cashbookService interface {
	Kind() models.CashbookKind
	ListHeads(ctx context.Context) ([]models.Head, error)
	CreateHead(ctx context.Context, req service.HeadRequest) (*models.Head, error)
	UpdateHead(ctx context.Context, id string, req service.HeadRequest) (*models.Head, error)
	DeleteHead(ctx context.Context, id string) error
	ListEntries(ctx context.Context, filter models.CashEntryFilter) ([]dto.CashEntryView, error)
	GetEntry(ctx context.Context, id string) (*dto.CashEntryView, error)
	CreateEntry(ctx context.Context, req service.CashEntryRequest) (*dto.CashEntryView, error)
	UpdateEntry(ctx context.Context, id string, req service.CashEntryRequest) (*dto.CashEntryView, error)
	DeleteEntry(ctx context.Context, id string) error
	IncomeStats(ctx context.Context) (*dto.IncomeStats, error)
	ExpenseStats(ctx context.Context, month *string) (*dto.ExpenseStats, error)
}

// CashbookHandler serves either the income or the expense ledger; one
// instance is mounted per ledger.
type CashbookHandler struct {
	book cashbookService
}

// NewCashbookHandler constructs a CashbookHandler.
func NewCashbookHandler(book cashbookService) *CashbookHandler {
	return &CashbookHandler{book: book}
}

// ListHeads godoc
// @Summary List heads
// @Tags Cashbook
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} response.Envelope
// @Router /income/heads [get]
// @Router /expenses/heads [get]
func (h *CashbookHandler) ListHeads(c *gin.Context) {
	heads, err := h.book.ListHeads(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pagination := pageOf(c, heads)
	response.Paged(c, page, len(page), pagination, nil)
}

// CreateHead godoc
// @Summary Create head
// @Tags Cashbook
// @Accept json
// @Produce json
// @Param payload body service.HeadRequest true "Head"
// @Success 201 {object} response.Envelope
// @Router /income/heads [post]
// @Router /expenses/heads [post]
func (h *CashbookHandler) CreateHead(c *gin.Context) {
	var req service.HeadRequest
	if !bindJSON(c, &req, "invalid head payload") {
		return
	}
	head, err := h.book.CreateHead(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, head)
}

// UpdateHead godoc
// @Summary Update head
// @Tags Cashbook
// @Accept json
// @Produce json
// @Param id path string true "Head ID"
// @Param payload body service.HeadRequest true "Head"
// @Success 200 {object} response.Envelope
// @Router /income/heads/{id} [put]
// @Router /expenses/heads/{id} [put]
func (h *CashbookHandler) UpdateHead(c *gin.Context) {
	var req service.HeadRequest
	if !bindJSON(c, &req, "invalid head payload") {
		return
	}
	head, err := h.book.UpdateHead(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, head)
}

// DeleteHead godoc
// @Summary Delete head
// @Tags Cashbook
// @Param id path string true "Head ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /income/heads/{id} [delete]
// @Router /expenses/heads/{id} [delete]
func (h *CashbookHandler) DeleteHead(c *gin.Context) {
	if err := h.book.DeleteHead(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListEntries godoc
// @Summary List entries
// @Tags Cashbook
// @Produce json
// @Param headId query string false "Head ID"
// @Param startDate query string false "Inclusive start date (YYYY-MM-DD)"
// @Param endDate query string false "Inclusive end date (YYYY-MM-DD)"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} response.Envelope
// @Router /income [get]
// @Router /expenses [get]
func (h *CashbookHandler) ListEntries(c *gin.Context) {
	entries, err := h.book.ListEntries(c.Request.Context(), models.CashEntryFilter{
		HeadID:    c.Query("headId"),
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pagination := pageOf(c, entries)
	response.Paged(c, page, len(page), pagination, nil)
}

// GetEntry godoc
// @Summary Get entry
// @Tags Cashbook
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /income/{id} [get]
// @Router /expenses/{id} [get]
func (h *CashbookHandler) GetEntry(c *gin.Context) {
	entry, err := h.book.GetEntry(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// CreateEntry godoc
// @Summary Create entry
// @Tags Cashbook
// @Accept json
// @Produce json
// @Param payload body service.CashEntryRequest true "Entry"
// @Success 201 {object} response.Envelope
// @Router /income [post]
// @Router /expenses [post]
func (h *CashbookHandler) CreateEntry(c *gin.Context) {
	var req service.CashEntryRequest
	if !bindJSON(c, &req, "invalid "+string(h.book.Kind())+" payload") {
		return
	}
	req.CreatedBy = actorID(c)
	entry, err := h.book.CreateEntry(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// UpdateEntry godoc
// @Summary Update entry
// @Tags Cashbook
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body service.CashEntryRequest true "Entry"
// @Success 200 {object} response.Envelope
// @Router /income/{id} [put]
// @Router /expenses/{id} [put]
func (h *CashbookHandler) UpdateEntry(c *gin.Context) {
	var req service.CashEntryRequest
	if !bindJSON(c, &req, "invalid "+string(h.book.Kind())+" payload") {
		return
	}
	entry, err := h.book.UpdateEntry(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// DeleteEntry godoc
// @Summary Delete entry
// @Tags Cashbook
// @Param id path string true "Entry ID"
// @Success 204
// @Router /income/{id} [delete]
// @Router /expenses/{id} [delete]
func (h *CashbookHandler) DeleteEntry(c *gin.Context) {
	if err := h.book.DeleteEntry(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats godoc
// @Summary Ledger statistics
// @Description Income stats cover all time and the current month. Expense stats accept an optional month.
// @Tags Cashbook
// @Produce json
// @Param month query string false "Expense month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Router /income/stats [get]
// @Router /expenses/stats [get]
func (h *CashbookHandler) Stats(c *gin.Context) {
	var (
		stats interface{}
		err   error
	)
	if h.book.Kind() == models.CashbookIncome {
		stats, err = h.book.IncomeStats(c.Request.Context())
	} else {
		stats, err = h.book.ExpenseStats(c.Request.Context(), optionalQuery(c, "month"))
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}
