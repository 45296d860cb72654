package apierror

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jrsteele09/go-marketplace-client/internal/utils"
)

const nonFieldKey = "non_field_errors"

// Response is the minimal view of an HTTP response that errors keep hold of.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// FromResponse resolves a non-2xx payload into the taxonomy. The backend answers
// with a bare string, {"error"}, {"detail"}, {"message"}, {"errors": {field: [...]}}
// or a bare field map; the shape is decided here once.
func FromResponse(status int, body []byte) error {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return &StatusError{Status: status}
	}

	var payload any
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return &StatusError{Status: status, Message: truncate(trimmed)}
	}

	switch v := payload.(type) {
	case string:
		return &StatusError{Status: status, Message: v}
	case []any:
		if msgs := utils.ToStringSlice(v); len(msgs) > 0 {
			return &StatusError{Status: status, Message: msgs[0]}
		}
		return &StatusError{Status: status}
	case map[string]any:
		return fromObject(status, v)
	}
	return &StatusError{Status: status}
}

func fromObject(status int, obj map[string]any) error {
	if nested, ok := obj["errors"].(map[string]any); ok {
		if fields := fieldErrors(nested); len(fields) > 0 {
			return &ValidationError{Status: status, Fields: fields}
		}
	}
	for _, key := range []string{"message", "detail", "error"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return &StatusError{Status: status, Message: s}
		}
	}
	if fields := fieldErrors(obj); len(fields) > 0 {
		return &ValidationError{Status: status, Fields: fields}
	}
	return &StatusError{Status: status}
}

// fieldErrors flattens {field: "msg" | ["msg", ...]}; keys are sorted so the
// "first" error is stable, with non_field_errors leading.
func fieldErrors(obj map[string]any) []FieldError {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == nonFieldKey || keys[j] == nonFieldKey {
			return keys[i] == nonFieldKey
		}
		return keys[i] < keys[j]
	})

	var fields []FieldError
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			fields = append(fields, FieldError{Field: k, Message: v})
		case []any:
			for _, msg := range utils.ToStringSlice(v) {
				fields = append(fields, FieldError{Field: k, Message: msg})
			}
		}
	}
	return fields
}

func truncate(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
