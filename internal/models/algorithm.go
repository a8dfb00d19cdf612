package models

import (
	"encoding/json"
	"time"
)

// Algorithm is a versioned generator configuration row. Generator names a
// compiled generator in the registry; Parameters is handed to it as-is.
type Algorithm struct {
	ID          int64           `json:"id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Generator   string          `json:"generator"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Version     int             `json:"version"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   *time.Time      `json:"created_at,omitempty"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// AlgorithmTables are the configuration tables `generate` accepts
var AlgorithmTables = []string{
	TableTrainingAlgorithm,
	TableExternalLLMAlgorithm,
	TableAlgorithms,
}

// GenerationReport summarizes one generator run
type GenerationReport struct {
	Algorithm string `json:"algorithm"`
	Generator string `json:"generator"`
	Version   int    `json:"version"`
	Generated int    `json:"generated"`
	Skipped   int    `json:"skipped"`
	Inserted  int    `json:"inserted"`
	Failed    int    `json:"failed"`
	DryRun    bool   `json:"dry_run"`
}
