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

type feeCatalogService interface {
	ListGroups(ctx context.Context) ([]models.FeeGroup, error)
	CreateGroup(ctx context.Context, req service.FeeGroupRequest) (*models.FeeGroup, error)
	UpdateGroup(ctx context.Context, id string, req service.FeeGroupRequest) (*models.FeeGroup, error)
	DeleteGroup(ctx context.Context, id string) error
	ListTypes(ctx context.Context, groupID string) ([]models.FeeType, error)
	CreateType(ctx context.Context, req service.FeeTypeRequest) (*models.FeeType, error)
	UpdateType(ctx context.Context, id string, req service.FeeTypeRequest) (*models.FeeType, error)
	DeleteType(ctx context.Context, id string) error
	ListMasters(ctx context.Context) ([]dto.FeeMasterView, error)
	GetMaster(ctx context.Context, id string) (*dto.FeeMasterView, error)
	CreateMaster(ctx context.Context, req service.FeeMasterRequest) (*dto.FeeMasterView, error)
	UpdateMaster(ctx context.Context, id string, req service.FeeMasterRequest) (*dto.FeeMasterView, error)
	DeleteMaster(ctx context.Context, id string) error
}

// FeeHandler exposes the fee catalogue.
type FeeHandler struct {
	fees feeCatalogService
}

// NewFeeHandler constructs a FeeHandler.
func NewFeeHandler(fees feeCatalogService) *FeeHandler {
	return &FeeHandler{fees: fees}
}

// ListGroups godoc
// @Summary List fee groups
// @Tags Fee Catalogue
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/groups [get]
func (h *FeeHandler) ListGroups(c *gin.Context) {
	groups, err := h.fees.ListGroups(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, groups, len(groups), nil)
}

// CreateGroup godoc
// @Summary Create fee group
// @Tags Fee Catalogue
// @Accept json
// @Produce json
// @Param payload body service.FeeGroupRequest true "Fee group"
// @Success 201 {object} response.Envelope
// @Router /fees/groups [post]
func (h *FeeHandler) CreateGroup(c *gin.Context) {
	var req service.FeeGroupRequest
	if !bindJSON(c, &req, "invalid fee group payload") {
		return
	}
	group, err := h.fees.CreateGroup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// UpdateGroup godoc
// @Summary Update fee group
// @Tags Fee Catalogue
// @Accept json
// @Produce json
// @Param id path string true "Fee group ID"
// @Param payload body service.FeeGroupRequest true "Fee group"
// @Success 200 {object} response.Envelope
// @Router /fees/groups/{id} [put]
func (h *FeeHandler) UpdateGroup(c *gin.Context) {
	var req service.FeeGroupRequest
	if !bindJSON(c, &req, "invalid fee group payload") {
		return
	}
	group, err := h.fees.UpdateGroup(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group)
}

// DeleteGroup godoc
// @Summary Delete fee group
// @Tags Fee Catalogue
// @Param id path string true "Fee group ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /fees/groups/{id} [delete]
func (h *FeeHandler) DeleteGroup(c *gin.Context) {
	if err := h.fees.DeleteGroup(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListTypes godoc
// @Summary List fee types
// @Tags Fee Catalogue
// @Produce json
// @Param feeGroupId query string false "Fee group ID"
// @Success 200 {object} response.Envelope
// @Router /fees/types [get]
func (h *FeeHandler) ListTypes(c *gin.Context) {
	types, err := h.fees.ListTypes(c.Request.Context(), c.Query("feeGroupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, types, len(types), nil)
}

// CreateType godoc
// @Summary Create fee type
// @Tags Fee Catalogue
// @Accept json
// @Produce json
// @Param payload body service.FeeTypeRequest true "Fee type"
// @Success 201 {object} response.Envelope
// @Router /fees/types [post]
func (h *FeeHandler) CreateType(c *gin.Context) {
	var req service.FeeTypeRequest
	if !bindJSON(c, &req, "invalid fee type payload") {
		return
	}
	feeType, err := h.fees.CreateType(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, feeType)
}

// UpdateType godoc
// @Summary Update fee type
// @Tags Fee Catalogue
// @Accept json
// @Produce json
// @Param id path string true "Fee type ID"
// @Param payload body service.FeeTypeRequest true "Fee type"
// @Success 200 {object} response.Envelope
// @Router /fees/types/{id} [put]
func (h *FeeHandler) UpdateType(c *gin.Context) {
	var req service.FeeTypeRequest
	if !bindJSON(c, &req, "invalid fee type payload") {
		return
	}
	feeType, err := h.fees.UpdateType(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feeType)
}

// DeleteType godoc
// @Summary Delete fee type
// @Tags Fee Catalogue
// @Param id path string true "Fee type ID"
// @Success 204
// @Router /fees/types/{id} [delete]
func (h *FeeHandler) DeleteType(c *gin.Context) {
	if err := h.fees.DeleteType(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListMasters godoc
// @Summary List fee masters
// @Tags Fee Catalogue
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/masters [get]
func (h *FeeHandler) ListMasters(c *gin.Context) {
	masters, err := h.fees.ListMasters(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, masters, len(masters), nil)
}

// GetMaster godoc
// @Summary Get fee master
// @Tags Fee Catalogue
// @Produce json
// @Param id path string true "Fee master ID"
// @Success 200 {object} response.Envelope
// @Router /fees/masters/{id} [get]
func (h *FeeHandler) GetMaster(c *gin.Context) {
	master, err := h.fees.GetMaster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, master)
}

// CreateMaster godoc
// @Summary Create fee master
// @Tags Fee Catalogue
// @Accept json
// @Produce json
// @Param payload body service.FeeMasterRequest true "Fee master"
// @Success 201 {object} response.Envelope
// @Router /fees/masters [post]
func (h *FeeHandler) CreateMaster(c *gin.Context) {
	var req service.FeeMasterRequest
	if !bindJSON(c, &req, "invalid fee master payload") {
		return
	}
	master, err := h.fees.CreateMaster(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, master)
}

// UpdateMaster godoc
// @Summary Update fee master
// @Tags Fee Catalogue
// @Accept json
// @Produce json
// @Param id path string true "Fee master ID"
// @Param payload body service.FeeMasterRequest true "Fee master"
// @Success 200 {object} response.Envelope
// @Router /fees/masters/{id} [put]
func (h *FeeHandler) UpdateMaster(c *gin.Context) {
	var req service.FeeMasterRequest
	if !bindJSON(c, &req, "invalid fee master payload") {
		return
	}
	master, err := h.fees.UpdateMaster(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, master)
}

// DeleteMaster godoc
// @Summary Delete fee master
// @Tags Fee Catalogue
// @Param id path string true "Fee master ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /fees/masters/{id} [delete]
func (h *FeeHandler) DeleteMaster(c *gin.Context) {
	if err := h.fees.DeleteMaster(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
