package models

import (
	"encoding/json"
	"time"
)

// Table names used across the pipeline
const (
	TableTrainingData         = "training_data"
	TableSystemTraining       = "system_training"
	TableAPIEndpoints         = "api_endpoints"
	TableScripts              = "scripts"
	TableTrainingAlgorithm    = "training_data_algorithm"
	TableExternalLLMAlgorithm = "external_llm_algorithm"
	TableAlgorithms           = "algorithms"
	TableSystemConfig         = "system_config"
	TableCombinedTrainingView = "combined_training_view"
)

// KnownTables is the set checked by `trainctl tables` and preflight
var KnownTables = []string{
	TableTrainingData,
	TableSystemTraining,
	TableAPIEndpoints,
	TableScripts,
	TableTrainingAlgorithm,
	TableExternalLLMAlgorithm,
	TableAlgorithms,
	TableSystemConfig,
	TableCombinedTrainingView,
}

// TrainingExample is one row of training_data.
// Both the legacy rating/feedback pair and the per-field columns are carried;
// which set a deployment actually has is detected by verification, not assumed.
type TrainingExample struct {
	ID               int64           `json:"id,omitempty"`
	Tool             string          `json:"tool"`
	Intent           string          `json:"intent"`
	Query            string          `json:"query"`
	Response         string          `json:"response"`
	Systems          json.RawMessage `json:"systems,omitempty"`
	Workflow         json.RawMessage `json:"workflow,omitempty"`
	ExecutionDetails json.RawMessage `json:"execution_details,omitempty"`
	FollowUpQuery    string          `json:"follow_up_query,omitempty"`
	FollowUpResponse string          `json:"follow_up_response,omitempty"`

	// Legacy single rating
	Rating   *int   `json:"rating,omitempty"`
	Feedback string `json:"feedback,omitempty"`

	QueryRating      *int   `json:"query_rating,omitempty"`
	QueryFeedback    string `json:"query_feedback,omitempty"`
	ResponseRating   *int   `json:"response_rating,omitempty"`
	ResponseFeedback string `json:"response_feedback,omitempty"`
	EndpointRating   *int   `json:"endpoint_rating,omitempty"`
	EndpointFeedback string `json:"endpoint_feedback,omitempty"`

	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	IsActive  bool                   `json:"is_active"`
	Version   int                    `json:"version,omitempty"`
	CreatedAt *time.Time             `json:"created_at,omitempty"`
	UpdatedAt *time.Time             `json:"updated_at,omitempty"`
}

// RequiredTrainingColumns is the column list a training_data row must carry
var RequiredTrainingColumns = []string{
	"id",
	"tool",
	"intent",
	"query",
	"response",
	"systems",
	"workflow",
	"execution_details",
	"follow_up_query",
	"follow_up_response",
	"rating",
	"feedback",
	"query_rating",
	"query_feedback",
	"response_rating",
	"response_feedback",
	"endpoint_rating",
	"endpoint_feedback",
	"metadata",
	"is_active",
	"version",
	"created_at",
	"updated_at",
}

// UploadRecord is one entry of a bulk upload file
type UploadRecord struct {
	Tool     string                 `json:"tool"`
	Intent   string                 `json:"intent"`
	Query    string                 `json:"query"`
	Response string                 `json:"response"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// FeedbackField selects which per-field rating column pair a feedback call updates
type FeedbackField string

const (
	FeedbackQuery    FeedbackField = "query"
	FeedbackResponse FeedbackField = "response"
	FeedbackEndpoint FeedbackField = "endpoint"
)

// Valid reports whether f names a known rating pair
func (f FeedbackField) Valid() bool {
	switch f {
	case FeedbackQuery, FeedbackResponse, FeedbackEndpoint:
		return true
	}
	return false
}

// RatingColumn returns the rating column name, e.g. query_rating
func (f FeedbackField) RatingColumn() string { return string(f) + "_rating" }

// FeedbackColumn returns the feedback column name, e.g. query_feedback
func (f FeedbackField) FeedbackColumn() string { return string(f) + "_feedback" }

// FeedbackRequest is the body of POST /api/feedback/:id
type FeedbackRequest struct {
	Field    FeedbackField `json:"field"`
	Rating   int           `json:"rating"`
	Feedback string        `json:"feedback"`
}
