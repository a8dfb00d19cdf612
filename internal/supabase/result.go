package supabase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Result is a successful backend response
type Result struct {
	Status int
	Data   json.RawMessage
	Count  *int64
}

// Decode unmarshals the response body into v. An empty body leaves v untouched.
func (r *Result) Decode(v interface{}) error {
	if r == nil || len(bytes.TrimSpace(r.Data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}

// Len returns the number of rows in an array body; an object counts as one row
// and an empty body or null as zero.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	data := bytes.TrimSpace(r.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0
	}
	if data[0] != '[' {
		return 1
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0
	}
	return len(rows)
}

// APIError is a non-2xx response from the backend
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s (code %s)", msg, e.Code)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, msg)
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	if len(bytes.TrimSpace(body)) == 0 {
		return apiErr
	}

	var parsed struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
		Hint    json.RawMessage `json:"hint"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		apiErr.Message = string(body)
		return apiErr
	}

	apiErr.Code = parsed.Code
	apiErr.Message = parsed.Message
	if apiErr.Message == "" {
		apiErr.Message = parsed.Error
	}
	apiErr.Details = rawString(parsed.Details)
	apiErr.Hint = rawString(parsed.Hint)
	return apiErr
}

// rawString renders a JSON string as-is and anything else as compact JSON
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// AsAPIError unwraps err into an *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports a 404 from the backend
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Status == http.StatusNotFound
}

// IsUndefinedTable reports that the target relation does not exist
func IsUndefinedTable(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	switch apiErr.Code {
	case "42P01", "PGRST205":
		return true
	case "":
		return apiErr.Status == http.StatusNotFound
	}
	return false
}

// IsUndefinedFunction reports that an RPC target does not exist
func IsUndefinedFunction(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	return apiErr.Code == "42883" || apiErr.Code == "PGRST202"
}
