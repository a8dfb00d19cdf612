package models

import "time"

// SystemConfig is a key/value row of system_config
type SystemConfig struct {
	Key         string     `json:"key"`
	Value       string     `json:"value"`
	Description string     `json:"description,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Well-known system_config keys
const (
	ConfigKeyDefaultTool     = "training.default_tool"
	ConfigKeyGenerationLimit = "generation.max_records"
	ConfigKeyQueryModel      = "query.model"
)
