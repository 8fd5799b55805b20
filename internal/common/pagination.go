package common

import (
	"net/http"
	"strconv"
)

// MaxPageSize caps limit query parameters.
const MaxPageSize = 200

// Page describes a limit/offset window over a list response.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// ParseLimitOffset extracts limit and offset query parameters.
func ParseLimitOffset(r *http.Request, defaultLimit int) (limit, offset int) {
	q := r.URL.Query()
	limit = AtoiDefault(q.Get("limit"), defaultLimit)
	offset = AtoiDefault(q.Get("offset"), 0)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// AtoiDefault converts the provided string to an integer falling back to the default when parsing fails.
func AtoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
