package dataservice

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// errorEnvelope is the error body of PostgREST-style APIs.
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// HTTPError is a sanitized summary of a non-2xx data service response.
// Raw bodies are never kept; only a redacted snippet.
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string
	Code       string
	Message    string

	Snippet string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "data service http error"
	}
	parts := []string{fmt.Sprintf("data service error: op=%s status=%s", e.Op, strings.TrimSpace(e.Status))}
	if e.Code != "" {
		parts = append(parts, "code="+e.Code)
	}
	if e.Message != "" {
		parts = append(parts, "message="+e.Message)
	}
	if e.Snippet != "" {
		parts = append(parts, "body="+e.Snippet)
	}
	return strings.Join(parts, " ")
}

func (e *HTTPError) Unwrap() error { return ErrRequest }

func newHTTPError(op string, resp *http.Response, body []byte) error {
	h := &HTTPError{Op: op}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}

	var env errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil && (env.Code != "" || env.Message != "") {
		h.Code = strings.TrimSpace(env.Code)
		h.Message = redactSecrets(strings.TrimSpace(env.Message))
		return h
	}
	h.Snippet = redactAndTruncate(body)
	return h
}

var (
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)
	apiKeyKVRe    = regexp.MustCompile(`(?i)\b(api[_-]?key|access[_-]?token|refresh[_-]?token)\b"?\s*[:=]\s*"?[^\s"',}]+`)
)

// redactSecrets removes token-bearing substrings from messages.
func redactSecrets(s string) string {
	if s == "" {
		return ""
	}
	s = bearerTokenRe.ReplaceAllString(s, "Bearer <redacted>")
	s = apiKeyKVRe.ReplaceAllString(s, "<redacted_kv>")
	return strings.TrimSpace(s)
}

func redactAndTruncate(body []byte) string {
	const max = 256
	if len(body) == 0 {
		return ""
	}
	b := body
	if len(b) > max {
		b = b[:max]
	}
	s := redactSecrets(string(b))
	s = strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > max {
		return s + "..."
	}
	return s
}
