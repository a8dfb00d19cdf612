package services

import (
	"context"
	"fmt"
	"sort"

	"trainingops/internal/database"
	"trainingops/internal/models"
	"trainingops/internal/supabase"
)

// VerifyService checks that tables exist and carry the expected columns
type VerifyService struct {
	client *supabase.Client
}

// NewVerifyService creates a verification service
func NewVerifyService(client *supabase.Client) *VerifyService {
	return &VerifyService{client: client}
}

// Columns samples one row of table and compares its keys with required.
// An empty table yields a report with NoData set rather than an error.
func (s *VerifyService) Columns(ctx context.Context, table string, required []string) (models.ColumnReport, error) {
	report := models.ColumnReport{Table: table}

	res, err := s.client.From(table).Limit(1).Execute(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to sample %s: %w", table, err)
	}
	var rows []map[string]interface{}
	if err := res.Decode(&rows); err != nil {
		return report, err
	}
	if len(rows) == 0 {
		report.NoData = true
		return report, nil
	}

	keys := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		keys = append(keys, k)
	}
	return compareColumns(report, keys, required), nil
}

// SchemaColumns compares the declared columns of table, read over a direct
// SQL connection, with required. It works on empty tables.
func (s *VerifyService) SchemaColumns(ctx context.Context, db *database.DB, table string, required []string) (models.ColumnReport, error) {
	report := models.ColumnReport{Table: table}
	columns, err := db.Columns(ctx, table)
	if err != nil {
		return report, err
	}
	if len(columns) == 0 {
		return report, fmt.Errorf("table %s not found", table)
	}
	return compareColumns(report, columns, required), nil
}

func compareColumns(report models.ColumnReport, actual, required []string) models.ColumnReport {
	have := make(map[string]bool, len(actual))
	for _, c := range actual {
		have[c] = true
	}
	want := make(map[string]bool, len(required))
	for _, c := range required {
		want[c] = true
		if have[c] {
			report.Present = append(report.Present, c)
		} else {
			report.Missing = append(report.Missing, c)
		}
	}
	for _, c := range actual {
		if !want[c] {
			report.Extra = append(report.Extra, c)
		}
	}
	sort.Strings(report.Present)
	sort.Strings(report.Missing)
	sort.Strings(report.Extra)
	return report
}

// Tables reports existence and row count for each name. An undefined table
// is reported as missing; any other failure is carried in TableStatus.Error.
func (s *VerifyService) Tables(ctx context.Context, names []string) []models.TableStatus {
	statuses := make([]models.TableStatus, 0, len(names))
	for _, name := range names {
		status := models.TableStatus{Name: name}
		n, err := s.client.From(name).Count(ctx)
		switch {
		case err == nil:
			status.Exists = true
			status.Rows = n
		case supabase.IsUndefinedTable(err):
		default:
			status.Error = err.Error()
		}
		statuses = append(statuses, status)
	}
	return statuses
}
