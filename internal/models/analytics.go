package models

// UsageStatistics is the result of get_usage_statistics
type UsageStatistics struct {
	TotalQueries      int64    `json:"total_queries"`
	SuccessfulQueries int64    `json:"successful_queries"`
	FailedQueries     int64    `json:"failed_queries"`
	AverageRating     float64  `json:"average_rating"`
	ToolsUsed         []string `json:"tools_used"`
	LastQueryAt       *string  `json:"last_query_at"`
}

// DefaultUsageStatistics is returned when the procedure yields no rows
func DefaultUsageStatistics() UsageStatistics {
	return UsageStatistics{ToolsUsed: []string{}}
}

// TrainingComparison is the result of compare_training_vs_live
type TrainingComparison struct {
	TrainingExamples  int64   `json:"training_examples"`
	LiveQueries       int64   `json:"live_queries"`
	MatchedQueries    int64   `json:"matched_queries"`
	CoverageRate      float64 `json:"coverage_rate"`
	TrainingAvgRating float64 `json:"training_avg_rating"`
	LiveAvgRating     float64 `json:"live_avg_rating"`
}

// DefaultTrainingComparison is returned when the procedure yields no rows
func DefaultTrainingComparison() TrainingComparison {
	return TrainingComparison{}
}

// EffectivenessMetrics is the result of get_effectiveness_metrics
type EffectivenessMetrics struct {
	QueryAccuracy    float64            `json:"query_accuracy"`
	ResponseQuality  float64            `json:"response_quality"`
	EndpointAccuracy float64            `json:"endpoint_accuracy"`
	TotalRated       int64              `json:"total_rated"`
	ByTool           map[string]float64 `json:"by_tool"`
}

// DefaultEffectivenessMetrics is returned when the procedure yields no rows
func DefaultEffectivenessMetrics() EffectivenessMetrics {
	return EffectivenessMetrics{ByTool: map[string]float64{}}
}
