package models

import "time"

// ConfigurationType defines supported types for configuration values.
type ConfigurationType string

const (
	ConfigurationTypeString  ConfigurationType = "STRING"
	ConfigurationTypeNumber  ConfigurationType = "NUMBER"
	ConfigurationTypeBoolean ConfigurationType = "BOOLEAN"
)

// Configuration is one school setting, stored with its key as document id.
type Configuration struct {
	Key         string            `json:"key" bson:"_id"`
	Value       string            `json:"value" bson:"value"`
	Type        ConfigurationType `json:"type" bson:"type"`
	Description *string           `json:"description,omitempty" bson:"description,omitempty"`
	UpdatedBy   *string           `json:"updatedBy,omitempty" bson:"updatedBy,omitempty"`
	UpdatedAt   time.Time         `json:"updatedAt" bson:"updatedAt"`
}
