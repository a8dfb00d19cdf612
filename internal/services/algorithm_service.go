package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"trainingops/internal/generators"
	"trainingops/internal/models"
	"trainingops/internal/supabase"
)

// ErrNoActiveAlgorithm is returned when a configuration table has no active row
var ErrNoActiveAlgorithm = errors.New("no active algorithm")

// RunOptions controls one generation run
type RunOptions struct {
	// DryRun prints the generated records instead of inserting them
	DryRun bool
	// Limit caps the number of records kept; 0 keeps all
	Limit int
	// Out receives dry-run records; nil discards them
	Out io.Writer
}

// AlgorithmService selects the active generator configuration and runs it
type AlgorithmService struct {
	client    *supabase.Client
	registry  *generators.Registry
	target    string
	batchSize int
	metrics   *Metrics
	now       func() time.Time
}

// NewAlgorithmService creates an algorithm service writing into training_data
func NewAlgorithmService(client *supabase.Client, registry *generators.Registry, metrics *Metrics) *AlgorithmService {
	return &AlgorithmService{
		client:    client,
		registry:  registry,
		target:    models.TableTrainingData,
		batchSize: 50,
		metrics:   metrics,
		now:       time.Now,
	}
}

// List returns every configuration row of table, newest version first
func (s *AlgorithmService) List(ctx context.Context, table string) ([]models.Algorithm, error) {
	res, err := s.client.From(table).Order("version", false).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	var rows []models.Algorithm
	if err := res.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Active returns the highest-version active row of table
func (s *AlgorithmService) Active(ctx context.Context, table string) (*models.Algorithm, error) {
	res, err := s.client.From(table).
		Eq("is_active", true).
		Order("version", false).
		Limit(1).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active algorithm from %s: %w", table, err)
	}
	var rows []models.Algorithm
	if err := res.Decode(&rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", table, ErrNoActiveAlgorithm)
	}
	return &rows[0], nil
}

// Activate makes id the active row of table. An unknown id changes nothing;
// the deactivate and activate calls are separate requests with no atomicity
// between them.
func (s *AlgorithmService) Activate(ctx context.Context, table string, id int64) error {
	found, err := s.client.From(table).Select("id").Eq("id", id).Limit(1).Execute(ctx)
	if err != nil {
		return fmt.Errorf("failed to look up algorithm %d: %w", id, err)
	}
	if found.Len() == 0 {
		return fmt.Errorf("algorithm %d not found in %s", id, table)
	}

	now := s.now().UTC()
	if _, err := s.client.From(table).Eq("is_active", true).Neq("id", id).Update(ctx, map[string]interface{}{
		"is_active":  false,
		"updated_at": now,
	}); err != nil {
		return fmt.Errorf("failed to deactivate algorithms in %s: %w", table, err)
	}

	res, err := s.client.From(table).Eq("id", id).Update(ctx, map[string]interface{}{
		"is_active":  true,
		"updated_at": now,
	})
	if err != nil {
		return fmt.Errorf("failed to activate algorithm %d: %w", id, err)
	}
	if res.Len() == 0 {
		return fmt.Errorf("algorithm %d not found in %s", id, table)
	}
	return nil
}

// Run generates records with the active algorithm of table and inserts them.
// Records missing a query or response are skipped.
func (s *AlgorithmService) Run(ctx context.Context, table string, opts RunOptions) (*models.GenerationReport, error) {
	alg, err := s.Active(ctx, table)
	if err != nil {
		return nil, err
	}

	gen, err := s.registry.Get(alg.Generator)
	if err != nil {
		s.metrics.generation(alg.Generator, "unknown")
		return nil, fmt.Errorf("algorithm %q (v%d): %w", alg.Name, alg.Version, err)
	}

	report := &models.GenerationReport{
		Algorithm: alg.Name,
		Generator: gen.Name(),
		Version:   alg.Version,
		DryRun:    opts.DryRun,
	}

	log.Printf("🧪 [GENERATE] Running %s v%d (generator %s) from %s", alg.Name, alg.Version, gen.Name(), table)

	examples, err := gen.Generate(ctx, generators.Params(alg.Parameters))
	if err != nil {
		s.metrics.generation(gen.Name(), "error")
		return nil, fmt.Errorf("generator %s failed: %w", gen.Name(), err)
	}
	report.Generated = len(examples)

	now := s.now().UTC()
	valid := make([]models.TrainingExample, 0, len(examples))
	for _, ex := range examples {
		if ex.Query == "" || ex.Response == "" {
			report.Skipped++
			continue
		}
		valid = append(valid, s.stamp(ex, alg, now))
		if opts.Limit > 0 && len(valid) >= opts.Limit {
			break
		}
	}

	if opts.DryRun {
		if opts.Out != nil {
			enc := json.NewEncoder(opts.Out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(valid); err != nil {
				return nil, err
			}
		}
		s.metrics.generation(gen.Name(), "dry_run")
		return report, nil
	}

	for start := 0; start < len(valid); start += s.batchSize {
		end := start + s.batchSize
		if end > len(valid) {
			end = len(valid)
		}
		if _, err := s.client.From(s.target).Insert(ctx, valid[start:end]); err != nil {
			report.Failed += end - start
			s.metrics.failed(s.target, end-start)
			log.Printf("⚠️  [GENERATE] Insert of records %d-%d failed: %v", start+1, end, err)
			continue
		}
		report.Inserted += end - start
		s.metrics.inserted(s.target, end-start)
	}

	status := "success"
	if report.Failed > 0 {
		status = "partial"
	}
	s.metrics.generation(gen.Name(), status)
	log.Printf("✅ [GENERATE] %s: %d generated, %d skipped, %d inserted, %d failed",
		alg.Name, report.Generated, report.Skipped, report.Inserted, report.Failed)
	return report, nil
}

func (s *AlgorithmService) stamp(ex models.TrainingExample, alg *models.Algorithm, now time.Time) models.TrainingExample {
	meta := make(map[string]interface{}, len(ex.Metadata)+4)
	for k, v := range ex.Metadata {
		meta[k] = v
	}
	meta["algorithm_id"] = alg.ID
	meta["algorithm_name"] = alg.Name
	meta["algorithm_version"] = alg.Version
	meta["generated_at"] = now.Format(time.RFC3339)

	ex.ID = 0
	ex.Metadata = meta
	ex.IsActive = true
	ex.Version = alg.Version
	ex.CreatedAt = &now
	ex.UpdatedAt = &now
	return ex
}
