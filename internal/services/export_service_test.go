package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"trainingops/internal/supabase/supabasetest"
)

func newExportFixture(t *testing.T) (*supabasetest.Server, *ExportService) {
	t.Helper()
	fake := supabasetest.New(t)
	for i := 1; i <= 5; i++ {
		fake.Seed("training_data", map[string]interface{}{
			"id": i, "tool": []string{"slack", "github"}[i%2], "query": "q", "response": "r",
			"is_active": i != 3, "metadata": map[string]interface{}{"n": i},
		})
	}
	svc := NewExportService(fake.Backend())
	svc.pageSize = 2
	return fake, svc
}

func TestExport_JSONPages(t *testing.T) {
	fake, svc := newExportFixture(t)

	var buf bytes.Buffer
	n, err := svc.Export(context.Background(), &buf, "json", ExportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Len(t, fake.Requests(http.MethodGet, "training_data"), 3)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 5)
	assert.Equal(t, float64(1), rows[0]["id"])
	assert.Equal(t, float64(5), rows[4]["id"])
}

func TestExport_EmptyJSONIsArray(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("training_data")

	var buf bytes.Buffer
	n, err := NewExportService(fake.Backend()).Export(context.Background(), &buf, "json", ExportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, "[]\n", buf.String())
}

func TestExport_JSONLFiltered(t *testing.T) {
	_, svc := newExportFixture(t)

	var buf bytes.Buffer
	n, err := svc.Export(context.Background(), &buf, "jsonl", ExportFilter{Tool: "github", ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		var row map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		assert.Equal(t, "github", row["tool"])
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestExport_XLSX(t *testing.T) {
	_, svc := newExportFixture(t)

	var buf bytes.Buffer
	n, err := svc.Export(context.Background(), &buf, "xlsx", ExportFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("training_data")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, xlsxColumns[:3], rows[0][:3])
	assert.Equal(t, "github", rows[1][1])
}

func TestExport_UnsupportedFormat(t *testing.T) {
	_, svc := newExportFixture(t)
	_, err := svc.Export(context.Background(), &bytes.Buffer{}, "csv", ExportFilter{})
	assert.Error(t, err)
}
