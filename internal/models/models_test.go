package models

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestFeedbackField(t *testing.T) {
	if !FeedbackQuery.Valid() || !FeedbackResponse.Valid() || !FeedbackEndpoint.Valid() {
		t.Fatal("expected known fields to be valid")
	}
	if FeedbackField("rating").Valid() {
		t.Error("expected legacy column name to be rejected")
	}
	if got := FeedbackEndpoint.RatingColumn(); got != "endpoint_rating" {
		t.Errorf("RatingColumn = %q", got)
	}
	if got := FeedbackResponse.FeedbackColumn(); got != "response_feedback" {
		t.Errorf("FeedbackColumn = %q", got)
	}
}

func TestEndpointCatalogRows(t *testing.T) {
	src := `
service: slack
auth_type: bearer
auth_key: SLACK_BOT_TOKEN
rate_limit: 50
endpoints:
  - resource: chat
    action: post_message
    method: POST
    path: /chat.postMessage
    parameters:
      channel: {type: string, required: true}
  - resource: users
    action: list
    method: GET
    path: /users.list
    rate_limit: 20
`
	var catalog EndpointCatalog
	if err := yaml.Unmarshal([]byte(src), &catalog); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rows, err := catalog.Rows()
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Service != "slack" || rows[0].AuthType != "bearer" || rows[0].RateLimit != 50 {
		t.Errorf("catalog defaults not applied: %+v", rows[0])
	}
	if rows[1].RateLimit != 20 {
		t.Errorf("expected endpoint rate limit override, got %d", rows[1].RateLimit)
	}

	var params map[string]map[string]interface{}
	if err := json.Unmarshal(rows[0].Parameters, &params); err != nil {
		t.Fatalf("parameters are not JSON: %v", err)
	}
	if params["channel"]["type"] != "string" {
		t.Errorf("unexpected parameters %s", rows[0].Parameters)
	}
	if rows[1].Parameters != nil {
		t.Errorf("expected no parameters, got %s", rows[1].Parameters)
	}
}

func TestDefaultAnalyticsShapes(t *testing.T) {
	data, _ := json.Marshal(DefaultUsageStatistics())
	var usage map[string]interface{}
	_ = json.Unmarshal(data, &usage)
	if usage["tools_used"] == nil {
		t.Error("default usage should render tools_used as an empty list")
	}
	if _, ok := usage["last_query_at"]; !ok {
		t.Error("default usage should carry last_query_at")
	}

	data, _ = json.Marshal(DefaultEffectivenessMetrics())
	if string(data) != `{"query_accuracy":0,"response_quality":0,"endpoint_accuracy":0,"total_rated":0,"by_tool":{}}` {
		t.Errorf("unexpected default effectiveness %s", data)
	}
}
