package supabase_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainingops/internal/config"
	"trainingops/internal/supabase"
	"trainingops/internal/supabase/supabasetest"
)

func TestNewFromConfig_MissingCredentialsMakesNoRequest(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	cfg := &config.Config{SupabaseURL: srv.URL}
	client, err := supabase.NewFromConfig(cfg, config.ServiceRole)
	require.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, errors.Is(err, config.ErrMissingCredentials))
	assert.Equal(t, 0, hits)
}

func TestClient_SendsKeyHeaders(t *testing.T) {
	var gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client := supabase.New(srv.URL, "secret")
	_, err := client.From("training_data").Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestQuery_SelectFiltersAndOrder(t *testing.T) {
	fake := supabasetest.New(t)
	fake.Seed("training_data",
		map[string]interface{}{"tool": "slack", "query": "Send a message", "is_active": true, "version": 1},
		map[string]interface{}{"tool": "slack", "query": "List channels", "is_active": false, "version": 2},
		map[string]interface{}{"tool": "github", "query": "Open an issue", "is_active": true, "version": 3},
	)

	var rows []map[string]interface{}
	res, err := fake.Backend().From("training_data").
		Select("tool", "query").
		Eq("is_active", true).
		Order("version", false).
		Execute(context.Background())
	require.NoError(t, err)
	require.NoError(t, res.Decode(&rows))

	require.Len(t, rows, 2)
	assert.Equal(t, "github", rows[0]["tool"])
	assert.Equal(t, "slack", rows[1]["tool"])
	assert.NotContains(t, rows[0], "version")

	reqs := fake.Requests(http.MethodGet, "training_data")
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"eq.true"}, reqs[0].Query["is_active"])
	assert.Equal(t, "version.desc", reqs[0].Query.Get("order"))
}

func TestQuery_Count(t *testing.T) {
	fake := supabasetest.New(t)
	fake.Seed("system_training",
		map[string]interface{}{"category": "system"},
		map[string]interface{}{"category": "custom"},
		map[string]interface{}{"category": "custom"},
	)

	n, err := fake.Backend().From("system_training").Neq("category", "system").Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = fake.Backend().From("system_training").Eq("category", "missing").Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestQuery_UnfilteredDeleteRefused(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("scripts")

	_, err := fake.Backend().From("scripts").Delete(context.Background())
	assert.ErrorIs(t, err, supabase.ErrUnfiltered)

	_, err = fake.Backend().From("scripts").Update(context.Background(), map[string]interface{}{"is_active": false})
	assert.ErrorIs(t, err, supabase.ErrUnfiltered)

	assert.Empty(t, fake.Requests("", ""))
}

func TestQuery_UpsertMergesOnConflict(t *testing.T) {
	fake := supabasetest.New(t)
	fake.Seed("system_config", map[string]interface{}{"key": "batch_size", "value": "10"})

	_, err := fake.Backend().From("system_config").Upsert(context.Background(),
		map[string]interface{}{"key": "batch_size", "value": "25"}, "key")
	require.NoError(t, err)

	rows := fake.Rows("system_config")
	require.Len(t, rows, 1)
	assert.Equal(t, "25", rows[0]["value"])

	reqs := fake.Requests(http.MethodPost, "system_config")
	require.Len(t, reqs, 1)
	assert.Equal(t, "key", reqs[0].Query.Get("on_conflict"))
	assert.Contains(t, reqs[0].Prefer, "merge-duplicates")
}

func TestAPIError_UndefinedTable(t *testing.T) {
	fake := supabasetest.New(t)

	_, err := fake.Backend().From("combined_training_view").Execute(context.Background())
	require.Error(t, err)
	assert.True(t, supabase.IsUndefinedTable(err))
	assert.True(t, supabase.IsNotFound(err))

	apiErr, ok := supabase.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "PGRST205", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "status 404")
}

func TestAPIError_PlainTextBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	_, err := supabase.New(srv.URL, "k").RPC(context.Background(), "anything", nil)
	apiErr, ok := supabase.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
	assert.False(t, supabase.IsUndefinedTable(err))
}

func TestRPC(t *testing.T) {
	fake := supabasetest.New(t)
	fake.HandleRPC("get_usage_statistics", func(params map[string]interface{}) (interface{}, int) {
		return []map[string]interface{}{{"user_id": params["p_user_id"], "total_queries": 4}}, 0
	})

	res, err := fake.Backend().RPC(context.Background(), "get_usage_statistics", map[string]interface{}{"p_user_id": "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Len())

	var rows []struct {
		UserID       string `json:"user_id"`
		TotalQueries int    `json:"total_queries"`
	}
	require.NoError(t, res.Decode(&rows))
	assert.Equal(t, "u1", rows[0].UserID)
	assert.Equal(t, 4, rows[0].TotalQueries)

	_, err = fake.Backend().RPC(context.Background(), "missing_fn", nil)
	assert.True(t, supabase.IsUndefinedFunction(err))
}

func TestPing(t *testing.T) {
	fake := supabasetest.New(t)
	assert.NoError(t, fake.Backend().Ping(context.Background()))
}

func TestResult_Len(t *testing.T) {
	cases := map[string]int{
		"":              0,
		"null":          0,
		"[]":            0,
		`[{"a":1},{}]`:  2,
		`{"a":1}`:       1,
		`  [{"a":1}]  `: 1,
	}
	for body, want := range cases {
		r := &supabase.Result{Data: []byte(body)}
		assert.Equal(t, want, r.Len(), "body %q", body)
	}
}

func TestInsert_MixedKeySetsSendColumns(t *testing.T) {
	fake := supabasetest.New(t)
	fake.CreateTable("training_data")

	rows := []map[string]interface{}{
		{"tool": "slack", "query": "q1", "response": "r1"},
		{"tool": "slack", "query": "q2", "response": "r2", "metadata": map[string]interface{}{"k": "v"}},
	}
	_, err := fake.Backend().From("training_data").Insert(context.Background(), rows)
	require.NoError(t, err)

	_, err = fake.Backend().From("training_data").Insert(context.Background(), rows[:1])
	require.NoError(t, err)

	reqs := fake.Requests(http.MethodPost, "training_data")
	require.Len(t, reqs, 2)
	assert.Equal(t, "metadata,query,response,tool", reqs[0].Query.Get("columns"))
	assert.Empty(t, reqs[1].Query.Get("columns"))
	assert.Len(t, fake.Rows("training_data"), 3)
}
