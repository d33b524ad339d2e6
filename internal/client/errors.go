package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"apparel/storefront/internal/domain"
)

const maxDetailLength = 200

// GatewayError is a non-2xx answer from the catalog API. Detail and Fields
// carry the backend's messages unchanged so callers can show them.
type GatewayError struct {
	Method     string
	URL        string
	StatusCode int
	Detail     string
	Fields     map[string][]string
}

func (e *GatewayError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: status %d", e.Method, e.URL, e.StatusCode)
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "; %s: %s", name, strings.Join(e.Fields[name], " "))
		}
	}
	return b.String()
}

// Is maps the status code onto the domain error it stands for.
func (e *GatewayError) Is(target error) bool {
	switch target {
	case domain.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case domain.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case domain.ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case domain.ErrInvalidInput:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	case domain.ErrGatewayUnavailable:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// IsGatewayError reports whether err carries a GatewayError and returns it.
func IsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

func newGatewayError(method, url string, status int, contentType string, body []byte) *GatewayError {
	gwErr := &GatewayError{
		Method:     method,
		URL:        url,
		StatusCode: status,
	}

	trimmed := bytes.TrimSpace(body)
	switch {
	case len(trimmed) == 0:
		gwErr.Detail = http.StatusText(status)
	case strings.Contains(contentType, "html") || trimmed[0] == '<':
		gwErr.Detail = htmlErrorTitle(trimmed)
		if gwErr.Detail == "" {
			gwErr.Detail = http.StatusText(status)
		}
	case trimmed[0] == '{':
		gwErr.Detail, gwErr.Fields = parseErrorObject(trimmed)
	case trimmed[0] == '[':
		var msgs []string
		if err := json.Unmarshal(trimmed, &msgs); err == nil {
			gwErr.Detail = strings.Join(msgs, " ")
		}
	}
	if gwErr.Detail == "" && len(gwErr.Fields) == 0 {
		gwErr.Detail = truncate(string(trimmed), maxDetailLength)
	}
	return gwErr
}

// parseErrorObject reads {"detail": "..."} and field error objects such as
// {"nombre": ["This field is required."]}.
func parseErrorObject(body []byte) (string, map[string][]string) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", nil
	}

	var detail string
	fields := make(map[string][]string)
	for key, value := range raw {
		msgs := decodeMessages(value)
		if len(msgs) == 0 {
			continue
		}
		if key == "detail" {
			detail = strings.Join(msgs, " ")
			continue
		}
		fields[key] = msgs
	}
	if len(fields) == 0 {
		fields = nil
	}
	return detail, fields
}

func decodeMessages(value json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(value, &single); err == nil {
		return []string{single}
	}
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		return list
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
