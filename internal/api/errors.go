package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("api error (%d): invalid fields %s", e.StatusCode, strings.Join(keys, ", "))
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an *Error.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// parseError decodes the backend's error body. Two shapes are understood:
// {"detail": "..."} and field maps like {"shipping_phone": ["This field is required."]}.
func parseError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		e.Message = strings.TrimSpace(string(body))
		return e
	}

	for key, val := range raw {
		msg := firstMessage(val)
		if key == "detail" || key == "error" || key == "message" {
			if e.Message == "" {
				e.Message = msg
			}
			continue
		}
		if msg == "" {
			continue
		}
		if e.Fields == nil {
			e.Fields = make(map[string]string)
		}
		e.Fields[key] = msg
	}
	return e
}

func firstMessage(val json.RawMessage) string {
	var s string
	if json.Unmarshal(val, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(val, &list) == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}
