package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-finance-api/internal/dto"
	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
	appErrors "github.com/noah-isme/sma-finance-api/pkg/errors"
)

// ConfigKeyCurrentSession points at the session treated as current.
const ConfigKeyCurrentSession = "current_session_id"

type configurationRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error)
	Get(ctx context.Context, key string) (*models.Configuration, error)
	Upsert(ctx context.Context, cfg *models.Configuration) error
	BulkUpsert(ctx context.Context, cfgs []models.Configuration) error
}

type sessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type configurationAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type allowedConfiguration struct {
	Key             string
	Type            models.ConfigurationType
	Category        string
	Description     string
	Default         string
	RequiresSession bool
	Min, Max        int
}

var allowedConfigurationKeys = []string{
	"school_name",
	"school_address",
	"school_phone",
	"school_email",
	"school_website",
	ConfigKeyCurrentSession,
	"session_start_month",
	"session_end_month",
	"currency",
	"currency_symbol",
	"date_format",
	"timezone",
	"language",
}

var allowedConfigurations = map[string]allowedConfiguration{
	"school_name":    {Key: "school_name", Type: models.ConfigurationTypeString, Category: "school", Description: "School name printed on receipts and reports", Default: "Smart School"},
	"school_address": {Key: "school_address", Type: models.ConfigurationTypeString, Category: "school", Description: "Postal address"},
	"school_phone":   {Key: "school_phone", Type: models.ConfigurationTypeString, Category: "school", Description: "Contact phone"},
	"school_email":   {Key: "school_email", Type: models.ConfigurationTypeString, Category: "school", Description: "Contact email"},
	"school_website": {Key: "school_website", Type: models.ConfigurationTypeString, Category: "school", Description: "Public website"},
	ConfigKeyCurrentSession: {
		Key:             ConfigKeyCurrentSession,
		Type:            models.ConfigurationTypeString,
		Category:        "session",
		Description:     "Session treated as current",
		RequiresSession: true,
	},
	"session_start_month": {Key: "session_start_month", Type: models.ConfigurationTypeNumber, Category: "session", Description: "First month of a session (1-12)", Default: "4", Min: 1, Max: 12},
	"session_end_month":   {Key: "session_end_month", Type: models.ConfigurationTypeNumber, Category: "session", Description: "Last month of a session (1-12)", Default: "3", Min: 1, Max: 12},
	"currency":            {Key: "currency", Type: models.ConfigurationTypeString, Category: "general", Description: "ISO currency code", Default: "USD"},
	"currency_symbol":     {Key: "currency_symbol", Type: models.ConfigurationTypeString, Category: "general", Description: "Currency symbol", Default: "$"},
	"date_format":         {Key: "date_format", Type: models.ConfigurationTypeString, Category: "general", Description: "Display date format", Default: "YYYY-MM-DD"},
	"timezone":            {Key: "timezone", Type: models.ConfigurationTypeString, Category: "general", Description: "Display timezone", Default: "UTC+0:00"},
	"language":            {Key: "language", Type: models.ConfigurationTypeString, Category: "general", Description: "Interface language", Default: "English"},
}

// ConfigurationServiceConfig overrides built-in defaults, e.g. from env.
type ConfigurationServiceConfig struct {
	Defaults map[string]string
}

// ConfigurationService manages school settings.
type ConfigurationService struct {
	repo      configurationRepository
	sessions  sessionReader
	audit     configurationAuditLogger
	validator *validator.Validate
	logger    *zap.Logger
	defaults  map[string]string
}

// NewConfigurationService constructs a ConfigurationService.
func NewConfigurationService(repo configurationRepository, sessions sessionReader, audit configurationAuditLogger, validate *validator.Validate, logger *zap.Logger, cfg ConfigurationServiceConfig) *ConfigurationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := make(map[string]string, len(allowedConfigurations))
	for key, meta := range allowedConfigurations {
		if meta.Default != "" {
			defaults[key] = meta.Default
		}
	}
	for key, value := range cfg.Defaults {
		if value == "" {
			continue
		}
		defaults[key] = value
	}
	return &ConfigurationService{
		repo:      repo,
		sessions:  sessions,
		audit:     audit,
		validator: validate,
		logger:    logger,
		defaults:  defaults,
	}
}

// List returns every supported setting, stored values over defaults.
func (s *ConfigurationService) List(ctx context.Context) ([]dto.ConfigurationItem, error) {
	keys := allowedKeys()
	rows, err := s.repo.ListByKeys(ctx, keys)
	if err != nil {
		return nil, errInternal(err, "failed to list configurations")
	}
	existing := make(map[string]models.Configuration, len(rows))
	for _, row := range rows {
		existing[row.Key] = row
	}

	items := make([]dto.ConfigurationItem, 0, len(keys))
	for _, key := range keys {
		meta := allowedConfigurations[key]
		item := s.itemFor(meta, s.defaults[key])
		if row, ok := existing[key]; ok && row.Value != "" {
			item.Value = row.Value
		}
		items = append(items, item)
	}
	return items, nil
}

// Get retrieves a single setting, falling back to its default.
func (s *ConfigurationService) Get(ctx context.Context, key string) (*dto.ConfigurationItem, error) {
	meta, err := s.requireAllowedKey(key)
	if err != nil {
		return nil, err
	}
	cfg, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			return nil, errInternal(err, "failed to get configuration")
		}
		def, ok := s.defaults[key]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "configuration not set")
		}
		item := s.itemFor(meta, def)
		return &item, nil
	}
	item := s.itemFor(meta, cfg.Value)
	return &item, nil
}

// Update validates and stores a single setting.
func (s *ConfigurationService) Update(ctx context.Context, key string, value string, actor *models.JWTClaims) (*dto.ConfigurationItem, error) {
	meta, err := s.requireAllowedKey(key)
	if err != nil {
		return nil, err
	}
	value, err = s.validateValue(ctx, meta, value)
	if err != nil {
		return nil, err
	}

	prev, err := s.repo.Get(ctx, key)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return nil, errInternal(err, "failed to fetch configuration")
	}

	cfg := &models.Configuration{
		Key:         key,
		Value:       value,
		Type:        meta.Type,
		Description: strPtr(meta.Description),
		UpdatedBy:   userIDPtr(actor),
	}
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, errInternal(err, "failed to update configuration")
	}

	s.emitAudit(ctx, actor, key, prevValue(prev), value)

	item := s.itemFor(meta, value)
	return &item, nil
}

// BulkUpdate validates every item before writing any.
func (s *ConfigurationService) BulkUpdate(ctx context.Context, req dto.BulkUpdateConfigurationRequest, actor *models.JWTClaims) ([]dto.ConfigurationItem, error) {
	if err := validateStruct(s.validator, req, "invalid bulk payload"); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		keys = append(keys, item.Key)
	}
	existing, err := s.repo.ListByKeys(ctx, keys)
	if err != nil {
		return nil, errInternal(err, "failed to load existing configurations")
	}
	existingMap := make(map[string]models.Configuration, len(existing))
	for _, cfg := range existing {
		existingMap[cfg.Key] = cfg
	}

	toUpsert := make([]models.Configuration, 0, len(req.Items))
	for _, item := range req.Items {
		meta, err := s.requireAllowedKey(item.Key)
		if err != nil {
			return nil, err
		}
		normalized, err := s.validateValue(ctx, meta, item.Value)
		if err != nil {
			return nil, err
		}
		toUpsert = append(toUpsert, models.Configuration{
			Key:         item.Key,
			Value:       normalized,
			Type:        meta.Type,
			Description: strPtr(meta.Description),
			UpdatedBy:   userIDPtr(actor),
		})
	}

	if err := s.repo.BulkUpsert(ctx, toUpsert); err != nil {
		return nil, errInternal(err, "failed to bulk update configurations")
	}

	result := make([]dto.ConfigurationItem, 0, len(toUpsert))
	for _, cfg := range toUpsert {
		result = append(result, s.itemFor(allowedConfigurations[cfg.Key], cfg.Value))
		prev := existingMap[cfg.Key]
		s.emitAudit(ctx, actor, cfg.Key, prevValue(&prev), cfg.Value)
	}
	return result, nil
}

// CurrentSessionID returns the configured current session, or "" when unset.
func (s *ConfigurationService) CurrentSessionID(ctx context.Context) (string, error) {
	cfg, err := s.repo.Get(ctx, ConfigKeyCurrentSession)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return s.defaults[ConfigKeyCurrentSession], nil
		}
		return "", errInternal(err, "failed to get current session")
	}
	return cfg.Value, nil
}

func (s *ConfigurationService) requireAllowedKey(key string) (allowedConfiguration, error) {
	meta, ok := allowedConfigurations[key]
	if !ok {
		return allowedConfiguration{}, appErrors.Clone(appErrors.ErrValidation, "unsupported configuration key")
	}
	return meta, nil
}

func (s *ConfigurationService) validateValue(ctx context.Context, meta allowedConfiguration, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch meta.Type {
	case models.ConfigurationTypeBoolean:
		switch strings.ToLower(value) {
		case "true":
			return "true", nil
		case "false":
			return "false", nil
		default:
			return "", errValidation(fmt.Sprintf("%s expects boolean value", meta.Key))
		}
	case models.ConfigurationTypeNumber:
		n, err := strconv.Atoi(value)
		if err != nil {
			return "", errValidation(fmt.Sprintf("%s expects an integer", meta.Key))
		}
		if meta.Max > 0 && (n < meta.Min || n > meta.Max) {
			return "", errValidation(fmt.Sprintf("%s must be between %d and %d", meta.Key, meta.Min, meta.Max))
		}
		return strconv.Itoa(n), nil
	case models.ConfigurationTypeString:
		if meta.RequiresSession {
			if _, err := strictLookup(ctx, "session", value, s.sessions.FindByID); err != nil {
				return "", err
			}
		}
		return value, nil
	default:
		return "", errValidation("unsupported configuration type")
	}
}

func (s *ConfigurationService) emitAudit(ctx context.Context, actor *models.JWTClaims, key, oldValue, newValue string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     "CONFIG_UPDATE",
		Resource:   "configuration",
		ResourceID: &key,
		Details:    map[string]string{"old": oldValue, "new": newValue},
		IPAddress:  "system",
		UserAgent:  "configuration-service",
	}
	if actor != nil {
		log.Role = string(actor.Role)
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record configuration audit", zap.Error(err))
	}
}

func (s *ConfigurationService) itemFor(meta allowedConfiguration, value string) dto.ConfigurationItem {
	return dto.ConfigurationItem{
		Key:         meta.Key,
		Value:       value,
		Type:        string(meta.Type),
		Default:     s.defaults[meta.Key],
		Description: meta.Description,
		Category:    meta.Category,
	}
}

func allowedKeys() []string {
	keys := make([]string, len(allowedConfigurationKeys))
	copy(keys, allowedConfigurationKeys)
	return keys
}

func prevValue(cfg *models.Configuration) string {
	if cfg == nil {
		return ""
	}
	return cfg.Value
}

func userIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	return &actor.UserID
}
