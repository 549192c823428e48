package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

type configurationRepoStub struct {
	items map[string]models.Configuration
	err   error
}

func (s *configurationRepoStub) ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := []models.Configuration{}
	for _, key := range keys {
		if cfg, ok := s.items[key]; ok {
			result = append(result, cfg)
		}
	}
	return result, nil
}

func (s *configurationRepoStub) Get(ctx context.Context, key string) (*models.Configuration, error) {
	if s.err != nil {
		return nil, s.err
	}
	if cfg, ok := s.items[key]; ok {
		return &cfg, nil
	}
	return nil, docstore.ErrNotFound
}

func (s *configurationRepoStub) Upsert(ctx context.Context, cfg *models.Configuration) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = make(map[string]models.Configuration)
	}
	s.items[cfg.Key] = *cfg
	return nil
}

func (s *configurationRepoStub) BulkUpsert(ctx context.Context, cfgs []models.Configuration) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = make(map[string]models.Configuration)
	}
	for _, cfg := range cfgs {
		s.items[cfg.Key] = cfg
	}
	return nil
}

type configurationSessionStub struct {
	err error
}

func (t configurationSessionStub) FindByID(ctx context.Context, id string) (*models.Session, error) {
	if t.err != nil {
		return nil, t.err
	}
	return &models.Session{ID: id, Name: "2024-25"}, nil
}

type auditLoggerStub struct {
	logs []*models.AuditLog
}

func (a *auditLoggerStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newConfigurationServiceForTest(repo *configurationRepoStub, sessions configurationSessionStub, audit *auditLoggerStub, defaults map[string]string) *ConfigurationService {
	return NewConfigurationService(repo, sessions, audit, validator.New(), nil, ConfigurationServiceConfig{Defaults: defaults})
}

func TestConfigurationServiceUpdateNumber(t *testing.T) {
	repo := &configurationRepoStub{}
	audit := &auditLoggerStub{}
	service := newConfigurationServiceForTest(repo, configurationSessionStub{}, audit, nil)
	item, err := service.Update(context.Background(), "session_start_month", " 07 ", &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "7", item.Value)
	assert.Equal(t, "NUMBER", item.Type)
	assert.Equal(t, "session", item.Category)
	assert.Equal(t, "4", item.Default)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "CONFIG_UPDATE", audit.logs[0].Action)
	assert.Equal(t, map[string]string{"old": "", "new": "7"}, audit.logs[0].Details)
	assert.Equal(t, string(models.RoleAdmin), audit.logs[0].Role)
}

func TestConfigurationServiceUpdateRejectsOutOfRangeNumber(t *testing.T) {
	service := newConfigurationServiceForTest(&configurationRepoStub{}, configurationSessionStub{}, &auditLoggerStub{}, nil)
	for _, value := range []string{"0", "13", "april"} {
		_, err := service.Update(context.Background(), "session_end_month", value, &models.JWTClaims{UserID: "admin"})
		require.Error(t, err, value)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestConfigurationServiceUpdateInvalidKey(t *testing.T) {
	service := newConfigurationServiceForTest(&configurationRepoStub{}, configurationSessionStub{}, &auditLoggerStub{}, nil)
	_, err := service.Update(context.Background(), "unknown_key", "abc", &models.JWTClaims{UserID: "admin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestConfigurationServiceUpdateValidatesSession(t *testing.T) {
	service := newConfigurationServiceForTest(&configurationRepoStub{}, configurationSessionStub{err: docstore.ErrNotFound}, &auditLoggerStub{}, nil)
	_, err := service.Update(context.Background(), ConfigKeyCurrentSession, "session-x", &models.JWTClaims{UserID: "admin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestConfigurationServiceUpdateRecordsPreviousValue(t *testing.T) {
	repo := &configurationRepoStub{items: map[string]models.Configuration{
		"currency": {Key: "currency", Value: "USD", Type: models.ConfigurationTypeString},
	}}
	audit := &auditLoggerStub{}
	service := newConfigurationServiceForTest(repo, configurationSessionStub{}, audit, nil)

	_, err := service.Update(context.Background(), "currency", "INR", nil)
	require.NoError(t, err)
	assert.Equal(t, "INR", repo.items["currency"].Value)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "USD", audit.logs[0].Details["old"])
	assert.Nil(t, audit.logs[0].UserID)
}

func TestConfigurationServiceBulkUpdateRollbackOnValidation(t *testing.T) {
	repo := &configurationRepoStub{}
	audit := &auditLoggerStub{}
	service := newConfigurationServiceForTest(repo, configurationSessionStub{}, audit, nil)
	req := dto.BulkUpdateConfigurationRequest{
		Items: []dto.UpdateConfigurationRequest{
			{Key: "school_name", Value: "Hill View"},
			{Key: "unknown", Value: "value"},
		},
	}
	_, err := service.BulkUpdate(context.Background(), req, &models.JWTClaims{UserID: "admin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.items, 0)
	assert.Empty(t, audit.logs)
}

func TestConfigurationServiceBulkUpdate(t *testing.T) {
	repo := &configurationRepoStub{}
	audit := &auditLoggerStub{}
	service := newConfigurationServiceForTest(repo, configurationSessionStub{}, audit, nil)
	req := dto.BulkUpdateConfigurationRequest{
		Items: []dto.UpdateConfigurationRequest{
			{Key: "school_name", Value: "Hill View"},
			{Key: ConfigKeyCurrentSession, Value: "session-1"},
		},
	}
	items, err := service.BulkUpdate(context.Background(), req, &models.JWTClaims{UserID: "admin"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Hill View", repo.items["school_name"].Value)
	assert.Equal(t, "session-1", repo.items[ConfigKeyCurrentSession].Value)
	assert.Len(t, audit.logs, 2)

	current, err := service.CurrentSessionID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session-1", current)
}

func TestConfigurationServiceListFiltersKeys(t *testing.T) {
	repo := &configurationRepoStub{
		items: map[string]models.Configuration{
			"school_name": {Key: "school_name", Value: "Hill View", Type: models.ConfigurationTypeString},
			"other_key":   {Key: "other_key", Value: "secret", Type: models.ConfigurationTypeString},
		},
	}
	service := newConfigurationServiceForTest(repo, configurationSessionStub{}, &auditLoggerStub{}, nil)
	items, err := service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, len(allowedConfigurationKeys))
	values := map[string]string{}
	for _, item := range items {
		if item.Key == "other_key" {
			t.Fatalf("unexpected key returned: %s", item.Key)
		}
		values[item.Key] = item.Value
	}
	assert.Equal(t, "Hill View", values["school_name"])
	assert.Equal(t, "USD", values["currency"])
	assert.Equal(t, "4", values["session_start_month"])
	assert.Equal(t, "", values[ConfigKeyCurrentSession])
}

func TestConfigurationServiceUpdateHandlesRepoError(t *testing.T) {
	repo := &configurationRepoStub{err: errors.New("db down")}
	service := newConfigurationServiceForTest(repo, configurationSessionStub{}, &auditLoggerStub{}, nil)
	_, err := service.Update(context.Background(), "school_name", "Hill View", &models.JWTClaims{UserID: "admin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestConfigurationServiceGetUsesDefaults(t *testing.T) {
	service := newConfigurationServiceForTest(&configurationRepoStub{}, configurationSessionStub{}, &auditLoggerStub{},
		map[string]string{"school_name": "Hill View"})

	item, err := service.Get(context.Background(), "school_name")
	require.NoError(t, err)
	assert.Equal(t, "Hill View", item.Value)
	assert.Equal(t, "Hill View", item.Default)

	_, err = service.Get(context.Background(), "school_phone")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestConfigurationServiceCurrentSessionFallback(t *testing.T) {
	service := newConfigurationServiceForTest(&configurationRepoStub{}, configurationSessionStub{}, &auditLoggerStub{},
		map[string]string{ConfigKeyCurrentSession: "session-default"})
	value, err := service.CurrentSessionID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "session-default", value)
}
