// Package supabasetest provides an in-memory PostgREST stand-in for tests.
package supabasetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"trainingops/internal/supabase"
)

// Request is one recorded call to the fake backend
type Request struct {
	Method string
	Table  string // table name, or "rpc/<fn>"
	Query  url.Values
	Body   []byte
	Prefer string
}

// RPCFunc handles a stored-procedure call. Returning a nil result with a
// status of 0 yields an empty JSON array.
type RPCFunc func(params map[string]interface{}) (interface{}, int)

type failure struct {
	match  func(r Request) bool
	status int
	code   string
	msg    string
}

// Server is a fake backend with tables held in memory
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	tables   map[string][]map[string]interface{}
	rpcs     map[string]RPCFunc
	failures []failure
	nextID   int
	requests []Request
}

// New starts a fake backend that is closed when the test ends
func New(t testing.TB) *Server {
	s := &Server{
		tables: make(map[string][]map[string]interface{}),
		rpcs:   make(map[string]RPCFunc),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Backend returns a client pointed at the fake
func (s *Server) Backend() *supabase.Client {
	return supabase.New(s.URL, "test-key")
}

// CreateTable registers an empty table
func (s *Server) CreateTable(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		if _, ok := s.tables[name]; !ok {
			s.tables[name] = []map[string]interface{}{}
		}
	}
}

// Seed appends rows to a table, creating it if needed
func (s *Server) Seed(table string, rows ...map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.tables[table] = append(s.tables[table], s.withID(normalize(row)))
	}
	if _, ok := s.tables[table]; !ok {
		s.tables[table] = []map[string]interface{}{}
	}
}

// Rows returns a copy of a table's rows
func (s *Server) Rows(table string) []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]interface{}, len(s.tables[table]))
	for i, row := range s.tables[table] {
		out[i] = copyRow(row)
	}
	return out
}

// HandleRPC registers a stored procedure
func (s *Server) HandleRPC(name string, fn RPCFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rpcs[name] = fn
}

// FailWhen makes matching requests fail with the given status and error code
func (s *Server) FailWhen(match func(r Request) bool, status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{match: match, status: status, code: code, msg: message})
}

// Requests returns every recorded call, optionally narrowed by method and table
func (s *Server) Requests(method, table string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if method != "" && r.Method != method {
			continue
		}
		if table != "" && r.Table != table {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	req := Request{
		Method: r.Method,
		Table:  path,
		Query:  r.URL.Query(),
		Body:   body,
		Prefer: r.Header.Get("Prefer"),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)

	if r.Header.Get("apikey") == "" {
		writeError(w, http.StatusUnauthorized, "", "No API key found in request")
		return
	}

	for _, f := range s.failures {
		if f.match(req) {
			writeError(w, f.status, f.code, f.msg)
			return
		}
	}

	if path == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"swagger": "2.0"})
		return
	}

	if strings.HasPrefix(path, "rpc/") {
		s.handleRPC(w, strings.TrimPrefix(path, "rpc/"), body)
		return
	}

	rows, ok := s.tables[path]
	if !ok {
		writeError(w, http.StatusNotFound, "PGRST205", fmt.Sprintf("Could not find the table 'public.%s' in the schema cache", path))
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		matched := filterRows(rows, req.Query)
		total := len(matched)
		matched = orderRows(matched, req.Query.Get("order"))
		matched = pageRows(matched, req.Query)
		if strings.Contains(req.Prefer, "count=exact") {
			w.Header().Set("Content-Range", contentRange(len(matched), total))
		}
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		writeJSON(w, http.StatusOK, project(matched, req.Query.Get("select")))

	case http.MethodPost:
		incoming, err := decodeRows(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "PGRST102", err.Error())
			return
		}
		conflict := req.Query.Get("on_conflict")
		var written []map[string]interface{}
		for _, row := range incoming {
			if conflict != "" {
				if idx := findConflict(s.tables[path], row, strings.Split(conflict, ",")); idx >= 0 {
					for k, v := range row {
						s.tables[path][idx][k] = v
					}
					written = append(written, copyRow(s.tables[path][idx]))
					continue
				}
			}
			stored := s.withID(row)
			s.tables[path] = append(s.tables[path], stored)
			written = append(written, copyRow(stored))
		}
		writeJSON(w, http.StatusCreated, written)

	case http.MethodPatch:
		patch, err := decodeRows(body)
		if err != nil || len(patch) != 1 {
			writeError(w, http.StatusBadRequest, "PGRST102", "invalid patch body")
			return
		}
		var updated []map[string]interface{}
		for _, row := range s.tables[path] {
			if matchRow(row, req.Query) {
				for k, v := range patch[0] {
					row[k] = v
				}
				updated = append(updated, copyRow(row))
			}
		}
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		var kept, removed []map[string]interface{}
		for _, row := range s.tables[path] {
			if matchRow(row, req.Query) {
				removed = append(removed, row)
			} else {
				kept = append(kept, row)
			}
		}
		if kept == nil {
			kept = []map[string]interface{}{}
		}
		s.tables[path] = kept
		writeJSON(w, http.StatusOK, removed)

	default:
		writeError(w, http.StatusMethodNotAllowed, "", "method not allowed")
	}
}

func (s *Server) handleRPC(w http.ResponseWriter, name string, body []byte) {
	fn, ok := s.rpcs[name]
	if !ok {
		writeError(w, http.StatusNotFound, "PGRST202", fmt.Sprintf("Could not find the function public.%s", name))
		return
	}
	params := map[string]interface{}{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			writeError(w, http.StatusBadRequest, "PGRST102", err.Error())
			return
		}
	}
	result, status := fn(params)
	if status == 0 {
		status = http.StatusOK
	}
	if result == nil {
		result = []interface{}{}
	}
	writeJSON(w, status, result)
}

func (s *Server) withID(row map[string]interface{}) map[string]interface{} {
	if _, ok := row["id"]; !ok {
		s.nextID++
		row["id"] = float64(s.nextID)
	}
	return row
}

func decodeRows(body []byte) ([]map[string]interface{}, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var rows []map[string]interface{}
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}
	var row map[string]interface{}
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, err
	}
	return []map[string]interface{}{row}, nil
}

// normalize round-trips a row through JSON so seeded values compare like
// values that arrived over the wire
func normalize(row map[string]interface{}) map[string]interface{} {
	data, _ := json.Marshal(row)
	out := map[string]interface{}{}
	_ = json.Unmarshal(data, &out)
	return out
}

func copyRow(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

var reservedParams = map[string]bool{
	"select": true, "order": true, "limit": true, "offset": true, "on_conflict": true, "or": true,
}

func filterRows(rows []map[string]interface{}, q url.Values) []map[string]interface{} {
	var out []map[string]interface{}
	for _, row := range rows {
		if matchRow(row, q) {
			out = append(out, row)
		}
	}
	return out
}

func matchRow(row map[string]interface{}, q url.Values) bool {
	for key, values := range q {
		if reservedParams[key] {
			continue
		}
		for _, v := range values {
			if !matchExpr(row, key, v) {
				return false
			}
		}
	}
	for _, expr := range q["or"] {
		if !matchOr(row, expr) {
			return false
		}
	}
	return true
}

func matchOr(row map[string]interface{}, expr string) bool {
	expr = strings.TrimSuffix(strings.TrimPrefix(expr, "("), ")")
	for _, term := range strings.Split(expr, ",") {
		parts := strings.SplitN(term, ".", 2)
		if len(parts) == 2 && matchExpr(row, parts[0], parts[1]) {
			return true
		}
	}
	return false
}

func matchExpr(row map[string]interface{}, column, expr string) bool {
	parts := strings.SplitN(expr, ".", 2)
	if len(parts) != 2 {
		return false
	}
	op, want := parts[0], parts[1]
	value, present := row[column]
	got := ""
	if present && value != nil {
		got = fmt.Sprint(value)
	}

	switch op {
	case "eq":
		return present && value != nil && got == want
	case "neq":
		// SQL semantics: NULL <> x is not true
		return present && value != nil && got != want
	case "is":
		switch want {
		case "null":
			return !present || value == nil
		default:
			return present && got == want
		}
	case "ilike":
		return present && value != nil && likeRegexp(want).MatchString(got)
	case "in":
		list := strings.TrimSuffix(strings.TrimPrefix(want, "("), ")")
		for _, item := range strings.Split(list, ",") {
			if strings.Trim(item, `"`) == got {
				return true
			}
		}
		return false
	}
	return false
}

func likeRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '*', '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func orderRows(rows []map[string]interface{}, order string) []map[string]interface{} {
	if order == "" {
		return rows
	}
	terms := strings.Split(order, ",")
	sorted := append([]map[string]interface{}(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		for _, term := range terms {
			parts := strings.SplitN(term, ".", 2)
			column := parts[0]
			desc := len(parts) == 2 && strings.HasPrefix(parts[1], "desc")
			c := compare(sorted[i][column], sorted[j][column])
			if c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return sorted
}

func compare(a, b interface{}) int {
	fa, aNum := a.(float64)
	fb, bNum := b.(float64)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func pageRows(rows []map[string]interface{}, q url.Values) []map[string]interface{} {
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset > len(rows) {
		offset = len(rows)
	}
	rows = rows[offset:]
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit < len(rows) {
			rows = rows[:limit]
		}
	}
	return rows
}

func project(rows []map[string]interface{}, sel string) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	if sel == "" || sel == "*" {
		for _, row := range rows {
			out = append(out, copyRow(row))
		}
		return out
	}
	columns := strings.Split(sel, ",")
	for _, row := range rows {
		p := map[string]interface{}{}
		for _, c := range columns {
			if v, ok := row[c]; ok {
				p[c] = v
			}
		}
		out = append(out, p)
	}
	return out
}

func findConflict(rows []map[string]interface{}, row map[string]interface{}, columns []string) int {
	for i, existing := range rows {
		match := true
		for _, c := range columns {
			if fmt.Sprint(existing[c]) != fmt.Sprint(row[c]) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func contentRange(returned, total int) string {
	if returned == 0 {
		return fmt.Sprintf("*/%d", total)
	}
	return fmt.Sprintf("0-%d/%d", returned-1, total)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"code":    code,
		"message": message,
		"details": nil,
		"hint":    nil,
	})
}
