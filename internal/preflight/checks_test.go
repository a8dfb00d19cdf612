package preflight

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"trainingops/internal/config"
	"trainingops/internal/database"
	"trainingops/internal/supabase/supabasetest"
)

func fullConfig(url string) *config.Config {
	return &config.Config{
		SupabaseURL:        url,
		SupabaseServiceKey: "service",
		SupabaseAnonKey:    "anon",
		SupabaseJWTSecret:  "jwt",
		LLMProvider:        "openai",
		OpenAIAPIKey:       "sk-test",
	}
}

func seedAllTables(fake *supabasetest.Server) {
	fake.CreateTable(
		"training_data", "system_training", "api_endpoints", "scripts", "training_data_algorithm",
		"external_llm_algorithm", "algorithms", "system_config", "combined_training_view",
	)
}

func TestRunAll_Pass(t *testing.T) {
	fake := supabasetest.New(t)
	seedAllTables(fake)

	results := NewChecker(fullConfig(fake.URL), fake.Backend(), nil).RunAll(context.Background())
	if HasFailures(results) {
		t.Fatalf("Expected no failures, got %+v", results)
	}
	for _, r := range results {
		if r.Status != "pass" {
			t.Errorf("Expected %s to pass, got %s: %s", r.Name, r.Status, r.Message)
		}
	}
}

func TestCheckEnvironmentVariables_MissingCredentials(t *testing.T) {
	checker := NewChecker(&config.Config{}, nil, nil)
	result := checker.checkEnvironmentVariables()

	if result.Status != "fail" {
		t.Errorf("Expected status 'fail', got '%s'", result.Status)
	}
	if result.Error == nil {
		t.Error("Expected error to be set")
	}
}

func TestCheckEnvironmentVariables_OptionalMissing(t *testing.T) {
	cfg := fullConfig("http://localhost")
	cfg.SupabaseJWTSecret = ""
	cfg.LLMProvider = "anthropic"

	result := NewChecker(cfg, nil, nil).checkEnvironmentVariables()
	if result.Status != "warning" {
		t.Fatalf("Expected status 'warning', got '%s'", result.Status)
	}
	if result.Message != "Optional variables not set: SUPABASE_JWT_SECRET, ANTHROPIC_API_KEY" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
}

func TestCheckBackendConnection_NoClient(t *testing.T) {
	results := NewChecker(&config.Config{}, nil, nil).RunAll(context.Background())
	if !HasFailures(results) {
		t.Fatal("Expected failures without a backend")
	}
	for _, r := range results {
		if r.Name == "Required Tables" {
			t.Error("Table checks must not run without a backend")
		}
	}
}

func TestCheckBackendConnection_Rejected(t *testing.T) {
	fake := supabasetest.New(t)
	fake.FailWhen(func(r supabasetest.Request) bool { return r.Table == "" }, http.StatusUnauthorized, "", "Invalid API key")

	result := NewChecker(fullConfig(fake.URL), fake.Backend(), nil).checkBackendConnection(context.Background())
	if result.Status != "fail" {
		t.Errorf("Expected status 'fail', got '%s'", result.Status)
	}
	if result.Error == nil {
		t.Error("Expected error to be set")
	}
}

func TestCheckBackendTables(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("training_data", "system_training", "api_endpoints", "scripts")

	results := NewChecker(fullConfig(fake.URL), fake.Backend(), nil).checkBackendTables(context.Background())
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	required, optional := results[0], results[1]
	if required.Status != "fail" || required.Message != "Missing: training_data_algorithm" {
		t.Errorf("Unexpected required result: %+v", required)
	}
	if optional.Status != "warning" {
		t.Errorf("Expected optional tables to warn, got %s", optional.Status)
	}
}

func TestCheckDatabaseConnection(t *testing.T) {
	checker := NewChecker(&config.Config{}, nil, nil)
	if result := checker.checkDatabaseConnection(context.Background()); result.Status != "pass" {
		t.Errorf("Expected skipped check to pass, got %s", result.Status)
	}

	db, err := database.New(filepath.Join(t.TempDir(), "preflight.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	checker = NewChecker(&config.Config{}, nil, db)
	if result := checker.checkDatabaseConnection(context.Background()); result.Status != "pass" {
		t.Errorf("Expected status 'pass', got '%s'", result.Status)
	}

	db.Close()
	result := checker.checkDatabaseConnection(context.Background())
	if result.Status != "fail" {
		t.Errorf("Expected status 'fail' after close, got '%s'", result.Status)
	}
	if result.Error == nil {
		t.Error("Expected error to be set")
	}
}
