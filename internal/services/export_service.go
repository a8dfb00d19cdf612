package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"trainingops/internal/models"
	"trainingops/internal/supabase"
)

const exportPageSize = 1000

// Export formats
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatXLSX  = "xlsx"
)

// ExportFilter narrows the exported rows
type ExportFilter struct {
	Tool       string
	ActiveOnly bool
}

// xlsxColumns are the spreadsheet columns, in order
var xlsxColumns = []string{
	"id", "tool", "intent", "query", "response",
	"query_rating", "response_rating", "endpoint_rating",
	"is_active", "version", "created_at",
}

// ExportService writes training_data out as JSON, JSONL or XLSX
type ExportService struct {
	client   *supabase.Client
	table    string
	pageSize int
}

// NewExportService creates an export service
func NewExportService(client *supabase.Client) *ExportService {
	return &ExportService{client: client, table: models.TableTrainingData, pageSize: exportPageSize}
}

// Export pages through the table and writes every matching row to w.
// It returns the number of rows written.
func (s *ExportService) Export(ctx context.Context, w io.Writer, format string, filter ExportFilter) (int, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return s.exportJSON(ctx, w, filter)
	case FormatJSONL:
		return s.exportJSONL(ctx, w, filter)
	case FormatXLSX:
		return s.exportXLSX(ctx, w, filter)
	}
	return 0, fmt.Errorf("unsupported export format %q (want json, jsonl or xlsx)", format)
}

// each calls fn for every row, one page at a time
func (s *ExportService) each(ctx context.Context, filter ExportFilter, fn func(row map[string]interface{}) error) (int, error) {
	total := 0
	for offset := 0; ; offset += s.pageSize {
		q := s.client.From(s.table).Order("id", true).Range(offset, offset+s.pageSize-1)
		if filter.Tool != "" {
			q = q.Eq("tool", filter.Tool)
		}
		if filter.ActiveOnly {
			q = q.Eq("is_active", true)
		}
		res, err := q.Execute(ctx)
		if err != nil {
			return total, fmt.Errorf("failed to read %s at offset %d: %w", s.table, offset, err)
		}
		var rows []map[string]interface{}
		if err := res.Decode(&rows); err != nil {
			return total, err
		}
		for _, row := range rows {
			if err := fn(row); err != nil {
				return total, err
			}
			total++
		}
		if len(rows) < s.pageSize {
			return total, nil
		}
	}
}

func (s *ExportService) exportJSON(ctx context.Context, w io.Writer, filter ExportFilter) (int, error) {
	if _, err := io.WriteString(w, "["); err != nil {
		return 0, err
	}
	first := true
	n, err := s.each(ctx, filter, func(row map[string]interface{}) error {
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if !first {
			if _, err := io.WriteString(w, ",\n"); err != nil {
				return err
			}
		}
		first = false
		_, err = w.Write(data)
		return err
	})
	if err != nil {
		return n, err
	}
	_, err = io.WriteString(w, "]\n")
	return n, err
}

func (s *ExportService) exportJSONL(ctx context.Context, w io.Writer, filter ExportFilter) (int, error) {
	enc := json.NewEncoder(w)
	return s.each(ctx, filter, func(row map[string]interface{}) error {
		return enc.Encode(row)
	})
}

func (s *ExportService) exportXLSX(ctx context.Context, w io.Writer, filter ExportFilter) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := s.table
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return 0, err
	}

	header := make([]interface{}, len(xlsxColumns))
	for i, c := range xlsxColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return 0, err
	}

	line := 1
	n, err := s.each(ctx, filter, func(row map[string]interface{}) error {
		line++
		values := make([]interface{}, len(xlsxColumns))
		for i, c := range xlsxColumns {
			values[i] = cellValue(row[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, line)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	})
	if err != nil {
		return n, err
	}

	if err := f.Write(w); err != nil {
		return n, fmt.Errorf("failed to write workbook: %w", err)
	}
	return n, nil
}

// cellValue flattens nested JSON values to text
func cellValue(v interface{}) interface{} {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		data, _ := json.Marshal(v)
		return string(data)
	case nil:
		return ""
	}
	return v
}
