package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainingops/internal/config"
	"trainingops/internal/llm"
	"trainingops/internal/supabase/supabasetest"
	"trainingops/pkg/auth"
)

type testCLI struct {
	*cli
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestCLI(t *testing.T, fake *supabasetest.Server, stdin string) *testCLI {
	t.Helper()
	var stdout, stderr bytes.Buffer
	a := newCLI(strings.NewReader(stdin), &stdout, &stderr)
	a.cfg = &config.Config{
		Environment:        "test",
		LogLevel:           "error",
		SupabaseURL:        fake.URL,
		SupabaseServiceKey: "test-key",
		SupabaseAnonKey:    "test-key",
		GenerationTable:    "training_data_algorithm",
	}
	a.newCompleter = func(*config.Config) (llm.Completer, string, error) {
		return nil, "", errors.New("no provider in tests")
	}
	return &testCLI{cli: a, stdout: &stdout, stderr: &stderr}
}

func (tc *testCLI) run(args ...string) error {
	return tc.runContext(context.Background(), args...)
}

func (tc *testCLI) runContext(ctx context.Context, args ...string) error {
	root := newRootCmd(tc.cli)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func writeUploadFile(t *testing.T, n int) string {
	t.Helper()
	records := make([]map[string]interface{}, n)
	for i := range records {
		records[i] = map[string]interface{}{
			"tool":     "github",
			"intent":   "list_repos",
			"query":    "List repositories page " + string(rune('1'+i)),
			"response": "GET /user/repos",
		}
	}
	data, err := json.Marshal(records)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "upload.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestUpload_YesSendsOneRequestPerRecord(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("training_data")
	tc := newTestCLI(t, fake, "")

	require.NoError(t, tc.run("upload", "--yes", writeUploadFile(t, 3)))

	assert.Len(t, fake.Requests(http.MethodPost, "training_data"), 3)
	assert.Len(t, fake.Rows("training_data"), 3)
	assert.Contains(t, tc.stdout.String(), "3 succeeded, 0 failed of 3")
}

func TestUpload_PromptsForPathAndConfirmation(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("training_data")
	path := writeUploadFile(t, 2)
	tc := newTestCLI(t, fake, path+"\nn\n")

	require.NoError(t, tc.run("upload"))

	assert.Contains(t, tc.stdout.String(), "Upload cancelled.")
	assert.Empty(t, fake.Requests(http.MethodPost, "training_data"))
}

func TestUpload_StrictFailsOnRecordErrors(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("training_data")
	fake.FailWhen(func(r supabasetest.Request) bool {
		return r.Method == http.MethodPost && bytes.Contains(r.Body, []byte("page 2"))
	}, http.StatusBadRequest, "23502", "null value")
	path := writeUploadFile(t, 3)

	tc := newTestCLI(t, fake, "")
	require.NoError(t, tc.run("upload", "--yes", path))
	assert.Contains(t, tc.stdout.String(), "2 succeeded, 1 failed of 3")

	tc = newTestCLI(t, fake, "")
	err := tc.run("upload", "--yes", "--strict", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 records failed")
}

func TestMissingCredentialsMakeNoRequests(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("training_data", "system_training")

	cases := [][]string{
		{"upload", "--yes", writeUploadFile(t, 1)},
		{"verify"},
		{"cleanup", "--yes"},
		{"tables"},
	}
	for _, args := range cases {
		tc := newTestCLI(t, fake, "")
		tc.cfg.SupabaseServiceKey = ""
		tc.cfg.SupabaseAnonKey = ""

		err := tc.run(args...)
		require.Error(t, err, args[0])
		assert.True(t, errors.Is(err, config.ErrMissingCredentials), args[0])
	}
	assert.Empty(t, fake.Requests("", ""))
}

func TestVerify_NoData(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("training_data")
	tc := newTestCLI(t, fake, "")

	require.NoError(t, tc.run("verify"))
	assert.Contains(t, tc.stdout.String(), "has no data")
}

func TestVerify_MissingColumns(t *testing.T) {
	fake := supabasetest.New(t)
	fake.Seed("training_data", map[string]interface{}{"tool": "slack", "query": "q", "notes": "x"})
	tc := newTestCLI(t, fake, "")

	err := tc.run("verify", "--columns", "tool,query,response,intent")
	require.Error(t, err)
	out := tc.stdout.String()
	assert.Contains(t, out, "missing 2 columns: intent, response")
	assert.Contains(t, out, "extra columns: id, notes")
}

func TestTables_ReportsMissing(t *testing.T) {
	fake := supabasetest.New(t)
	fake.Seed("training_data", map[string]interface{}{"tool": "slack"})
	tc := newTestCLI(t, fake, "")

	require.NoError(t, tc.run("tables", "training_data", "scripts"))
	out := tc.stdout.String()
	assert.Contains(t, out, "1 rows")
	assert.Contains(t, out, "missing")
}

func TestCleanup_KeepsSystemRows(t *testing.T) {
	fake := supabasetest.New(t)
	fake.Seed("system_training",
		map[string]interface{}{"category": "system", "name": "default"},
		map[string]interface{}{"category": "system", "name": "tools"},
		map[string]interface{}{"category": "custom", "name": "draft"},
	)
	tc := newTestCLI(t, fake, "")

	require.NoError(t, tc.run("cleanup", "--yes"))

	deletes := fake.Requests(http.MethodDelete, "system_training")
	require.Len(t, deletes, 1)
	assert.Equal(t, []string{"neq.system"}, deletes[0].Query["category"])
	assert.Len(t, fake.Rows("system_training"), 2)
	assert.Contains(t, tc.stdout.String(), "(1 deleted)")
}

func TestCleanup_DeclinedSendsNothing(t *testing.T) {
	fake := supabasetest.New(t)
	fake.Seed("system_training", map[string]interface{}{"category": "custom", "name": "draft"})
	tc := newTestCLI(t, fake, "no\n")

	require.NoError(t, tc.run("cleanup"))
	assert.Empty(t, fake.Requests(http.MethodDelete, "system_training"))
	assert.Contains(t, tc.stdout.String(), "Cleanup cancelled.")
}

func TestGenerate_NoActiveAlgorithm(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("training_data")
	fake.Seed("training_data_algorithm", map[string]interface{}{
		"name": "templates", "generator": "template", "version": 1, "is_active": false,
	})
	tc := newTestCLI(t, fake, "")

	require.NoError(t, tc.run("generate"))
	assert.Contains(t, tc.stdout.String(), "no active algorithm")
	assert.Empty(t, fake.Requests(http.MethodPost, "training_data"))
}

func TestGenerate_RunsActiveTemplate(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("training_data")
	fake.Seed("training_data_algorithm", map[string]interface{}{
		"name": "issues", "generator": "template", "version": 2, "is_active": true,
		"parameters": map[string]interface{}{
			"tool":   "github",
			"intent": "create_issue",
			"templates": []map[string]interface{}{
				{"query": "Open an issue about {topic}", "response": "POST /repos/acme/app/issues"},
			},
			"values": map[string]interface{}{"topic": []string{"crash", "docs"}},
		},
	})
	tc := newTestCLI(t, fake, "")

	require.NoError(t, tc.run("generate"))
	assert.Len(t, fake.Rows("training_data"), 2)
	assert.Contains(t, tc.stdout.String(), "2 inserted, 0 failed")
}

func TestGenerate_RejectsUnknownTable(t *testing.T) {
	fake := supabasetest.New(t)
	tc := newTestCLI(t, fake, "")

	err := tc.run("generate", "--table", "training_data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown algorithm table")
	assert.Empty(t, fake.Requests("", ""))
}

func TestConfigSetGet(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("system_config")
	tc := newTestCLI(t, fake, "")

	require.NoError(t, tc.run("config", "set", "generation.max_records", "50", "--description", "cap"))
	require.NoError(t, tc.run("config", "get", "generation.max_records"))
	assert.Contains(t, tc.stdout.String(), "50\n")

	err := tc.run("config", "get", "query.model")
	require.Error(t, err)
}

func TestToken_VerifiesWithSameSecret(t *testing.T) {
	fake := supabasetest.New(t)
	tc := newTestCLI(t, fake, "")
	tc.cfg.SupabaseJWTSecret = "local-secret"

	require.NoError(t, tc.run("token", "--user", "op-1", "--email", "op@example.com"))

	verifier, err := auth.NewVerifier("local-secret")
	require.NoError(t, err)
	user, err := verifier.Verify(strings.TrimSpace(tc.stdout.String()))
	require.NoError(t, err)
	assert.Equal(t, "op-1", user.ID)
	assert.Equal(t, "op@example.com", user.Email)
}

func TestToken_RequiresSecret(t *testing.T) {
	fake := supabasetest.New(t)
	tc := newTestCLI(t, fake, "")

	err := tc.run("token")
	assert.ErrorIs(t, err, auth.ErrNoSecret)
}

func TestUpload_CancelledPrintsTally(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("training_data")
	tc := newTestCLI(t, fake, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tc.runContext(ctx, "upload", "--yes", writeUploadFile(t, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, tc.stdout.String(), "0 succeeded, 2 failed of 2")
	assert.Empty(t, fake.Requests(http.MethodPost, "training_data"))
}

func TestExport_XLSXNeedsOutputFileAnyCase(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("training_data")
	tc := newTestCLI(t, fake, "")

	err := tc.run("export", "-f", "XLSX")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output is required for xlsx")
	assert.Empty(t, fake.Requests("", ""))
	assert.Empty(t, tc.stdout.String())
}

func TestExport_WritesOutputFile(t *testing.T) {
	fake := supabasetest.New(t)
	fake.Seed("training_data", map[string]interface{}{"tool": "slack", "query": "q", "response": "r", "is_active": true})
	tc := newTestCLI(t, fake, "")
	path := filepath.Join(t.TempDir(), "out.jsonl")

	require.NoError(t, tc.run("export", "-f", "JSONL", "-o", path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), `"tool":"slack"`)
}

func TestWriteFile_ReportsWriteError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	wantErr := errors.New("encode failed")

	err := writeFile(path, func(w io.Writer) error { return wantErr })
	assert.ErrorIs(t, err, wantErr)

	err = writeFile(filepath.Join(t.TempDir(), "missing", "out.json"), func(w io.Writer) error { return nil })
	assert.Error(t, err)
}
