package jobs

import (
	"context"
	"errors"
	"log"

	"trainingops/internal/models"
	"trainingops/internal/services"
)

// GenerationJobName is the scheduler name of the generation job
const GenerationJobName = "generation"

// Generator runs the active algorithm of a table
type Generator interface {
	Run(ctx context.Context, table string, opts services.RunOptions) (*models.GenerationReport, error)
}

// GenerationJob generates and inserts examples from the active algorithm row
type GenerationJob struct {
	generator Generator
	table     string
	limit     int
}

// NewGenerationJob creates a job for table; limit caps records per run (0 = no cap)
func NewGenerationJob(generator Generator, table string, limit int) *GenerationJob {
	return &GenerationJob{generator: generator, table: table, limit: limit}
}

// Run executes one generation pass. No active algorithm is not an error for
// a scheduled run; it is logged and the tick is skipped.
func (j *GenerationJob) Run(ctx context.Context) error {
	report, err := j.generator.Run(ctx, j.table, services.RunOptions{Limit: j.limit})
	if errors.Is(err, services.ErrNoActiveAlgorithm) {
		log.Printf("⏭️  [GENERATE] No active algorithm in %s, skipping", j.table)
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("🧪 [GENERATE] %s v%d via %s: %d generated, %d inserted, %d failed, %d skipped",
		report.Algorithm, report.Version, report.Generator,
		report.Generated, report.Inserted, report.Failed, report.Skipped)
	return nil
}
