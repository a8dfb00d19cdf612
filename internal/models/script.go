package models

import (
	"encoding/json"
	"time"
)

// Script is stored source text in the scripts table, run on demand by the dispatcher
type Script struct {
	ID          int64           `json:"id,omitempty"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Language    string          `json:"language"`
	Content     string          `json:"content"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// ScriptSummary is the listing projection, without content
type ScriptSummary struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Language    string `json:"language"`
	Description string `json:"description,omitempty"`
}
