package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/middleware"
	"github.com/noah-isme/sma-finance-api/pkg/response"
)

type financeService interface {
	SummaryWithHit(ctx context.Context, start, end *string) (*dto.FinancialSummary, bool, error)
	Monthly(ctx context.Context) ([]dto.DailyFinancial, error)
	Session(ctx context.Context) ([]dto.MonthlyFinancial, error)
	Dashboard(ctx context.Context) (*dto.FinanceDashboard, error)
}

// FinanceHandler exposes the financial aggregator.
type FinanceHandler struct {
	finance financeService
}

// NewFinanceHandler constructs a FinanceHandler.
func NewFinanceHandler(finance financeService) *FinanceHandler {
	return &FinanceHandler{finance: finance}
}

// Summary godoc
// @Summary Financial summary
// @Description Totals income, expenses and paid fees between optional inclusive bounds.
// @Tags Finance
// @Produce json
// @Param startDate query string false "Start date (YYYY-MM-DD)"
// @Param endDate query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /finance/summary [get]
func (h *FinanceHandler) Summary(c *gin.Context) {
	summary, hit, err := h.finance.SummaryWithHit(c.Request.Context(), optionalQuery(c, "startDate"), optionalQuery(c, "endDate"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summary, middleware.ExtractMeta(c))
}

// Monthly godoc
// @Summary Daily series for the current month
// @Tags Finance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /finance/monthly [get]
func (h *FinanceHandler) Monthly(c *gin.Context) {
	series, err := h.finance.Monthly(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, series, len(series), middleware.ExtractMeta(c))
}

// Session godoc
// @Summary Monthly series for the trailing session
// @Tags Finance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /finance/session [get]
func (h *FinanceHandler) Session(c *gin.Context) {
	series, err := h.finance.Session(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, series, len(series), middleware.ExtractMeta(c))
}

// Dashboard godoc
// @Summary Finance dashboard
// @Tags Finance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /finance/dashboard [get]
func (h *FinanceHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.finance.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, middleware.ExtractMeta(c))
}
