package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/models"
)

type configurationServiceMock struct {
	updatedKey string
	actor      *models.JWTClaims
	bulk       dto.BulkUpdateConfigurationRequest
}

func (m *configurationServiceMock) List(ctx context.Context) ([]dto.ConfigurationItem, error) {
	return []dto.ConfigurationItem{{Key: "currency", Value: "USD"}}, nil
}

func (m *configurationServiceMock) Get(ctx context.Context, key string) (*dto.ConfigurationItem, error) {
	return &dto.ConfigurationItem{Key: key}, nil
}

func (m *configurationServiceMock) Update(ctx context.Context, key, value string, actor *models.JWTClaims) (*dto.ConfigurationItem, error) {
	m.updatedKey, m.actor = key, actor
	return &dto.ConfigurationItem{Key: key, Value: value, Type: "STRING"}, nil
}

func (m *configurationServiceMock) BulkUpdate(ctx context.Context, req dto.BulkUpdateConfigurationRequest, actor *models.JWTClaims) ([]dto.ConfigurationItem, error) {
	m.bulk = req
	return []dto.ConfigurationItem{}, nil
}

func TestConfigurationHandlerUpdateUsesPathKey(t *testing.T) {
	mock := &configurationServiceMock{}
	handler := NewConfigurationHandler(mock)
	c, w := newGinContext(http.MethodPut, "/configuration/currency", []byte(`{"value":"IDR"}`))
	c.Params = append(c.Params, ginParam("key", "currency"))
	withUser(c, "admin", models.RoleAdmin)

	handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "currency", mock.updatedKey)
	require.NotNil(t, mock.actor)
	assert.Equal(t, "admin", mock.actor.UserID)
}

func TestConfigurationHandlerUpdateKeyMismatch(t *testing.T) {
	handler := NewConfigurationHandler(&configurationServiceMock{})
	c, w := newGinContext(http.MethodPut, "/configuration/currency", []byte(`{"key":"school_name","value":"x"}`))
	c.Params = append(c.Params, ginParam("key", "currency"))

	handler.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfigurationHandlerBulk(t *testing.T) {
	mock := &configurationServiceMock{}
	handler := NewConfigurationHandler(mock)

	c, w := newGinContext(http.MethodPut, "/configuration", []byte(`invalid`))
	handler.BulkUpdate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPut, "/configuration", []byte(`{"items":[{"key":"currency","value":"EUR"}]}`))
	handler.BulkUpdate(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, mock.bulk.Items, 1)
	assert.Equal(t, "EUR", mock.bulk.Items[0].Value)
}

func TestConfigurationHandlerList(t *testing.T) {
	handler := NewConfigurationHandler(&configurationServiceMock{})
	c, w := newGinContext(http.MethodGet, "/configuration", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeEnvelope(t, w).Meta["count"])
}
