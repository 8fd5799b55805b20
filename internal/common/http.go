package common

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
)

// ClientIP attempts to determine the real client IP address from the request.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); ip != "" {
		if first := strings.TrimSpace(strings.Split(ip, ",")[0]); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

// DecodeJSON reads a single JSON document from the request body into dst,
// rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return BadRequest("BAD_REQUEST", "request body is empty")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return NewAppError("PAYLOAD_TOO_LARGE", "request body too large", http.StatusRequestEntityTooLarge, err)
		}
		return NewAppError("BAD_REQUEST", "invalid JSON body", http.StatusBadRequest, err)
	}
	return nil
}
