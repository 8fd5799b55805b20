package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error is returned for non-2xx backend responses and transport failures.
// Status is zero when no response was received.
type Error struct {
	Op      string
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("backend %s: %d %s", e.Op, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// UpstreamStatus implements common.UpstreamError.
func (e *Error) UpstreamStatus() int { return e.Status }

// UpstreamCode implements common.UpstreamError.
func (e *Error) UpstreamCode() string { return e.Code }

// UpstreamMessage implements common.UpstreamError.
func (e *Error) UpstreamMessage() string { return e.Message }

func transportError(op string, err error) *Error {
	return &Error{Op: op, Code: "BACKEND_UNAVAILABLE", Message: "order backend unavailable", Err: err}
}

func statusError(op string, status int, body []byte) *Error {
	e := &Error{Op: op, Status: status, Message: errorMessage(body)}
	if e.Message == "" {
		e.Message = strings.ToLower(http.StatusText(status))
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code = "UNAUTHORIZED"
	case status == http.StatusNotFound:
		e.Code = "NOT_FOUND"
	case status >= 500:
		e.Code = "BACKEND_ERROR"
	default:
		e.Code = "BACKEND_REJECTED"
	}
	return e
}

// errorMessage extracts a human readable message from the REST framework
// error shapes: {"error": "..."}, {"detail": "..."}, {"non_field_errors": [...]}
// or per-field lists.
func errorMessage(body []byte) string {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return ""
	}
	for _, key := range []string{"error", "detail"} {
		if raw, ok := doc[key]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				return s
			}
		}
	}
	if msg := firstString(doc["non_field_errors"]); msg != "" {
		return msg
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if msg := firstString(doc[k]); msg != "" {
			return k + ": " + msg
		}
	}
	return ""
}

func firstString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}
