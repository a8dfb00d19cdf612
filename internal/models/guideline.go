package models

import (
	"encoding/json"
	"time"
)

// CategorySystem is the guideline partition cleanup never touches
const CategorySystem = "system"

// SystemTraining is one guideline document in system_training
type SystemTraining struct {
	ID         int64           `json:"id,omitempty"`
	Category   string          `json:"category"`
	Name       string          `json:"name"`
	Guidelines json.RawMessage `json:"guidelines"`
	IsActive   bool            `json:"is_active"`
	CreatedAt  *time.Time      `json:"created_at,omitempty"`
	UpdatedAt  *time.Time      `json:"updated_at,omitempty"`
}

// GuidelineContext is the shape of a guideline seed file
type GuidelineContext struct {
	GeneralGuidelines  json.RawMessage `json:"general_guidelines"`
	AllowedOperations  json.RawMessage `json:"allowed_operations"`
	WorkflowGuidelines json.RawMessage `json:"workflow_guidelines"`
	ResponseExamples   json.RawMessage `json:"response_examples"`
	Tags               json.RawMessage `json:"tags"`
	Source             json.RawMessage `json:"source"`
}

// GuidelineContextKeys lists the keys a seed file must define
var GuidelineContextKeys = []string{
	"general_guidelines",
	"allowed_operations",
	"workflow_guidelines",
	"response_examples",
	"tags",
	"source",
}

// CleanupReport holds system_training partition counts around a cleanup
type CleanupReport struct {
	SystemBefore int64 `json:"system_before"`
	SystemAfter  int64 `json:"system_after"`
	OtherBefore  int64 `json:"other_before"`
	OtherAfter   int64 `json:"other_after"`
	Deleted      int   `json:"deleted"`
}
