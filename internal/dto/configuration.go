package dto

// ConfigurationItem is one whitelisted school setting with its effective
// value. Value falls back to Default when nothing is stored.
type ConfigurationItem struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// UpdateConfigurationRequest sets one setting. Key may be omitted when it is
// given in the path.
type UpdateConfigurationRequest struct {
	Key   string `json:"key" validate:"omitempty,max=64"`
	Value string `json:"value" validate:"required,max=512"`
}

// BulkUpdateConfigurationRequest applies several settings in order.
type BulkUpdateConfigurationRequest struct {
	Items []UpdateConfigurationRequest `json:"items" validate:"required,min=1,dive"`
}
