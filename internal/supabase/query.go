package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ErrUnfiltered is returned by Update and Delete when no filter was applied.
// PostgREST would otherwise touch every row in the table.
var ErrUnfiltered = errors.New("refusing to modify every row: no filter applied")

// Query is a table-scoped request builder. Filters accumulate; a terminal
// method (Execute, Count, Insert, Upsert, Update, Delete) sends the request.
type Query struct {
	client    *Client
	table     string
	params    url.Values
	filtered  bool
	withCount bool
}

// Select restricts the returned columns
func (q *Query) Select(columns ...string) *Query {
	if len(columns) == 0 {
		q.params.Set("select", "*")
	} else {
		q.params.Set("select", strings.Join(columns, ","))
	}
	return q
}

// Eq filters column = value
func (q *Query) Eq(column string, value interface{}) *Query {
	return q.filter(column, "eq", formatValue(value))
}

// Neq filters column <> value
func (q *Query) Neq(column string, value interface{}) *Query {
	return q.filter(column, "neq", formatValue(value))
}

// Is filters column IS value (null, true, false)
func (q *Query) Is(column string, value interface{}) *Query {
	if value == nil {
		return q.filter(column, "is", "null")
	}
	return q.filter(column, "is", formatValue(value))
}

// ILike filters with a case-insensitive pattern; use * or % as wildcard
func (q *Query) ILike(column, pattern string) *Query {
	return q.filter(column, "ilike", pattern)
}

// In filters column IN (values...)
func (q *Query) In(column string, values ...interface{}) *Query {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = quoteListValue(formatValue(v))
	}
	return q.filter(column, "in", "("+strings.Join(parts, ",")+")")
}

// Or adds a disjunction in PostgREST syntax, e.g. "query.ilike.*foo*,intent.eq.bar"
func (q *Query) Or(expr string) *Query {
	q.params.Add("or", "("+expr+")")
	q.filtered = true
	return q
}

// Order sorts by column; repeated calls add secondary keys
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	term := column + "." + dir
	if existing := q.params.Get("order"); existing != "" {
		term = existing + "," + term
	}
	q.params.Set("order", term)
	return q
}

// Limit caps the number of rows returned
func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// Offset skips rows, for paging
func (q *Query) Offset(n int) *Query {
	q.params.Set("offset", strconv.Itoa(n))
	return q
}

// Range selects rows from..to inclusive, zero-based
func (q *Query) Range(from, to int) *Query {
	return q.Offset(from).Limit(to - from + 1)
}

// WithCount asks for an exact total in Result.Count
func (q *Query) WithCount() *Query {
	q.withCount = true
	return q
}

// Execute runs a select
func (q *Query) Execute(ctx context.Context) (*Result, error) {
	if q.params.Get("select") == "" {
		q.params.Set("select", "*")
	}
	var headers map[string]string
	if q.withCount {
		headers = map[string]string{"Prefer": "count=exact"}
	}
	return q.client.do(ctx, http.MethodGet, q.table, q.params, nil, headers)
}

// Count returns the exact number of rows matching the filters
func (q *Query) Count(ctx context.Context) (int64, error) {
	params := q.filterParams()
	params.Set("select", "*")
	res, err := q.client.do(ctx, http.MethodHead, q.table, params, nil, map[string]string{
		"Prefer": "count=exact",
	})
	if err != nil {
		return 0, err
	}
	if res.Count == nil {
		return 0, fmt.Errorf("count for %s: backend returned no Content-Range total", q.table)
	}
	return *res.Count, nil
}

// Insert adds rows; rows may be a single struct/map or a slice
func (q *Query) Insert(ctx context.Context, rows interface{}) (*Result, error) {
	params := url.Values{}
	if err := setColumns(params, rows); err != nil {
		return nil, err
	}
	return q.client.do(ctx, http.MethodPost, q.table, params, rows, map[string]string{
		"Prefer": "return=representation",
	})
}

// Upsert inserts rows, merging on the given conflict columns
func (q *Query) Upsert(ctx context.Context, rows interface{}, onConflict string) (*Result, error) {
	params := url.Values{}
	if onConflict != "" {
		params.Set("on_conflict", onConflict)
	}
	if err := setColumns(params, rows); err != nil {
		return nil, err
	}
	return q.client.do(ctx, http.MethodPost, q.table, params, rows, map[string]string{
		"Prefer": "resolution=merge-duplicates,return=representation",
	})
}

// Update patches the filtered rows with values
func (q *Query) Update(ctx context.Context, values interface{}) (*Result, error) {
	if !q.filtered {
		return nil, ErrUnfiltered
	}
	return q.client.do(ctx, http.MethodPatch, q.table, q.filterParams(), values, map[string]string{
		"Prefer": "return=representation",
	})
}

// Delete removes the filtered rows and returns them
func (q *Query) Delete(ctx context.Context) (*Result, error) {
	if !q.filtered {
		return nil, ErrUnfiltered
	}
	return q.client.do(ctx, http.MethodDelete, q.table, q.filterParams(), nil, map[string]string{
		"Prefer": "return=representation",
	})
}

func (q *Query) filter(column, op, value string) *Query {
	q.params.Add(column, op+"."+value)
	q.filtered = true
	return q
}

// filterParams drops the select-only parameters
func (q *Query) filterParams() url.Values {
	out := url.Values{}
	for k, vs := range q.params {
		switch k {
		case "select", "order", "limit", "offset":
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// setColumns adds a columns parameter when the objects of a bulk body do not
// share one key set. PostgREST rejects mixed key sets otherwise; with columns
// given, absent keys take the column default.
func setColumns(params url.Values, rows interface{}) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	var objects []map[string]json.RawMessage
	if json.Unmarshal(data, &objects) != nil || len(objects) < 2 {
		return nil
	}

	union := map[string]bool{}
	uniform := true
	for i, obj := range objects {
		if i > 0 && len(obj) != len(objects[0]) {
			uniform = false
		}
		for k := range obj {
			if i > 0 && !union[k] {
				uniform = false
			}
			union[k] = true
		}
	}
	if uniform {
		return nil
	}

	keys := make([]string, 0, len(union))
	for k := range union {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	params.Set("columns", strings.Join(keys, ","))
	return nil
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func quoteListValue(s string) string {
	if strings.ContainsAny(s, ",()\" ") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}
