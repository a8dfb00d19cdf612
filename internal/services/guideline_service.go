package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"trainingops/internal/models"
	"trainingops/internal/supabase"
)

// GuidelineService manages system_training guideline documents
type GuidelineService struct {
	client *supabase.Client
	table  string
}

// NewGuidelineService creates a guideline service
func NewGuidelineService(client *supabase.Client) *GuidelineService {
	return &GuidelineService{client: client, table: models.TableSystemTraining}
}

// Cleanup deletes every guideline outside the system category. The system
// partition is counted before and after; a change there is an error.
func (s *GuidelineService) Cleanup(ctx context.Context) (*models.CleanupReport, error) {
	report := &models.CleanupReport{}
	var err error

	if report.SystemBefore, err = s.countSystem(ctx); err != nil {
		return nil, err
	}
	if report.OtherBefore, err = s.countOther(ctx); err != nil {
		return nil, err
	}

	res, err := s.client.From(s.table).Neq("category", models.CategorySystem).Delete(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to delete non-system guidelines: %w", err)
	}
	report.Deleted = res.Len()

	if report.SystemAfter, err = s.countSystem(ctx); err != nil {
		return report, err
	}
	if report.OtherAfter, err = s.countOther(ctx); err != nil {
		return report, err
	}

	log.Printf("🧹 [CLEANUP] system_training: system %d -> %d, other %d -> %d",
		report.SystemBefore, report.SystemAfter, report.OtherBefore, report.OtherAfter)

	if report.SystemAfter != report.SystemBefore {
		return report, fmt.Errorf("system guideline count changed from %d to %d", report.SystemBefore, report.SystemAfter)
	}
	return report, nil
}

func (s *GuidelineService) countSystem(ctx context.Context) (int64, error) {
	n, err := s.client.From(s.table).Eq("category", models.CategorySystem).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count system guidelines: %w", err)
	}
	return n, nil
}

func (s *GuidelineService) countOther(ctx context.Context) (int64, error) {
	n, err := s.client.From(s.table).Neq("category", models.CategorySystem).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count non-system guidelines: %w", err)
	}
	return n, nil
}

// LoadContext reads a guideline context file and checks that every required
// key is present
func LoadContext(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%s is not a JSON object: %w", path, err)
	}
	var missing []string
	for _, key := range models.GuidelineContextKeys {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s is missing keys: %s", path, strings.Join(missing, ", "))
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, err
	}
	return compact.Bytes(), nil
}

// SeedFromFile upserts the context file at path as the (category, name) guideline
func (s *GuidelineService) SeedFromFile(ctx context.Context, path, category, name string) (*models.SystemTraining, error) {
	guidelines, err := LoadContext(path)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row := models.SystemTraining{
		Category:   category,
		Name:       name,
		Guidelines: guidelines,
		IsActive:   true,
		UpdatedAt:  &now,
	}
	res, err := s.client.From(s.table).Upsert(ctx, row, "category,name")
	if err != nil {
		return nil, fmt.Errorf("failed to seed guideline %s/%s: %w", category, name, err)
	}

	var stored []models.SystemTraining
	if err := res.Decode(&stored); err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return &row, nil
	}
	return &stored[0], nil
}

// List returns guidelines, optionally for one category
func (s *GuidelineService) List(ctx context.Context, category string) ([]models.SystemTraining, error) {
	q := s.client.From(s.table).Order("category", true).Order("name", true)
	if category != "" {
		q = q.Eq("category", category)
	}
	res, err := q.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list guidelines: %w", err)
	}
	var rows []models.SystemTraining
	if err := res.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}
