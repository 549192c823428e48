package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-finance-api/internal/middleware"
	"github.com/noah-isme/sma-finance-api/internal/models"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
	"github.com/noah-isme/sma-finance-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return claims
}

func actorID(c *gin.Context) *string {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		return nil
	}
	id := claims.UserID
	return &id
}

// bindJSON decodes the request body into dest and reports a validation error
// when it cannot.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func optionalQuery(c *gin.Context, key string) *string {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil
	}
	return &value
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageOf cuts the page named by the page and pageSize query parameters out of
// items, which must already be in their final order. Out-of-range pages are
// empty.
func pageOf[T any](c *gin.Context, items []T) ([]T, *models.Pagination) {
	page := 1
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && v > 0 {
		page = v
	}
	size := defaultPageSize
	if v, err := strconv.Atoi(c.Query("pageSize")); err == nil && v > 0 {
		size = v
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	start := len(items)
	if page-1 < (len(items)+size-1)/size {
		start = (page - 1) * size
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	window := make([]T, 0, end-start)
	window = append(window, items[start:end]...)
	return window, &models.Pagination{Page: page, PageSize: size, TotalCount: len(items)}
}
