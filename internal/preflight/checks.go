package preflight

import (
	"context"
	"fmt"
	"log"
	"strings"

	"trainingops/internal/config"
	"trainingops/internal/database"
	"trainingops/internal/models"
	"trainingops/internal/services"
	"trainingops/internal/supabase"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Checker performs pre-flight checks before the pipeline runs
type Checker struct {
	cfg     *config.Config
	backend *supabase.Client
	db      *database.DB

	requiredTables []string
	optionalTables []string
}

// NewChecker creates a new preflight checker. backend and db may be nil when
// their configuration is absent; the corresponding checks then fail or are skipped.
func NewChecker(cfg *config.Config, backend *supabase.Client, db *database.DB) *Checker {
	return &Checker{
		cfg:     cfg,
		backend: backend,
		db:      db,
		requiredTables: []string{
			models.TableTrainingData,
			models.TableSystemTraining,
			models.TableAPIEndpoints,
			models.TableScripts,
			models.TableTrainingAlgorithm,
		},
		optionalTables: []string{
			models.TableExternalLLMAlgorithm,
			models.TableAlgorithms,
			models.TableSystemConfig,
			models.TableCombinedTrainingView,
		},
	}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkEnvironmentVariables(),
		c.checkBackendConnection(ctx),
	}
	results = append(results, c.checkBackendTables(ctx)...)
	results = append(results, c.checkDatabaseConnection(ctx))

	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("📊 Pre-flight summary: %d passed, %d failed, %d warnings", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

// checkEnvironmentVariables verifies backend credentials are configured.
// The service-role key is required; the rest only limit what is available.
func (c *Checker) checkEnvironmentVariables() CheckResult {
	if _, err := c.cfg.Backend(config.ServiceRole); err != nil {
		return CheckResult{
			Name:    "Environment Variables",
			Status:  "fail",
			Message: "Backend credentials not configured",
			Error:   err,
		}
	}

	var missing []string
	if c.cfg.SupabaseAnonKey == "" {
		missing = append(missing, "SUPABASE_KEY")
	}
	if c.cfg.SupabaseJWTSecret == "" {
		missing = append(missing, "SUPABASE_JWT_SECRET")
	}
	if _, err := c.cfg.LLMKey(); err != nil {
		missing = append(missing, strings.ToUpper(c.cfg.LLMProvider)+"_API_KEY")
	}

	if len(missing) > 0 {
		return CheckResult{
			Name:    "Environment Variables",
			Status:  "warning",
			Message: fmt.Sprintf("Optional variables not set: %s", strings.Join(missing, ", ")),
		}
	}

	return CheckResult{
		Name:    "Environment Variables",
		Status:  "pass",
		Message: "All environment variables configured",
	}
}

// checkBackendConnection verifies the REST endpoint answers with our key
func (c *Checker) checkBackendConnection(ctx context.Context) CheckResult {
	if c.backend == nil {
		return CheckResult{
			Name:    "Backend Connection",
			Status:  "fail",
			Message: "No backend client (credentials missing)",
		}
	}

	if err := c.backend.Ping(ctx); err != nil {
		return CheckResult{
			Name:    "Backend Connection",
			Status:  "fail",
			Message: "Cannot reach " + c.backend.BaseURL(),
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Backend Connection",
		Status:  "pass",
		Message: "Backend reachable at " + c.backend.BaseURL(),
	}
}

// checkBackendTables verifies the pipeline tables exist. Missing required
// tables fail; missing optional ones only warn.
func (c *Checker) checkBackendTables(ctx context.Context) []CheckResult {
	if c.backend == nil {
		return nil
	}
	verify := services.NewVerifyService(c.backend)

	return []CheckResult{
		tableResult("Required Tables", "fail", verify.Tables(ctx, c.requiredTables)),
		tableResult("Optional Tables", "warning", verify.Tables(ctx, c.optionalTables)),
	}
}

func tableResult(name, missingStatus string, statuses []models.TableStatus) CheckResult {
	var missing, broken []string
	for _, s := range statuses {
		switch {
		case s.Error != "":
			broken = append(broken, s.Name+" ("+s.Error+")")
		case !s.Exists:
			missing = append(missing, s.Name)
		}
	}

	if len(broken) > 0 {
		return CheckResult{
			Name:    name,
			Status:  "fail",
			Message: "Cannot check: " + strings.Join(broken, "; "),
		}
	}
	if len(missing) > 0 {
		return CheckResult{
			Name:    name,
			Status:  missingStatus,
			Message: "Missing: " + strings.Join(missing, ", "),
		}
	}
	return CheckResult{
		Name:    name,
		Status:  "pass",
		Message: fmt.Sprintf("All %d tables exist", len(statuses)),
	}
}

// checkDatabaseConnection verifies the optional direct SQL connection
func (c *Checker) checkDatabaseConnection(ctx context.Context) CheckResult {
	if c.db == nil {
		return CheckResult{
			Name:    "Database Connection",
			Status:  "pass",
			Message: "Skipped (DATABASE_URL not set)",
		}
	}

	if err := c.db.PingContext(ctx); err != nil {
		return CheckResult{
			Name:    "Database Connection",
			Status:  "fail",
			Message: "Cannot connect to database",
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Database Connection",
		Status:  "pass",
		Message: fmt.Sprintf("%s connection successful", c.db.Dialect()),
	}
}
