package gateway

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/nillzand/ehsan-meals/pkg/util"
)

// DecodeError turns an error response into a remote error. It understands
// {"detail": "..."}, field maps like {"side_item_ids": ["..."]}, plain lists,
// and the {"error": {"message": "..."}} envelope; anything else falls back to
// the raw body or the status text.
func DecodeError(status int, body []byte) error {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return apperrors.NewRemoteError(status, strings.TrimSpace(string(body)), nil)
	}

	switch v := payload.(type) {
	case map[string]any:
		if envelope, ok := v["error"].(map[string]any); ok {
			if msg, ok := envelope["message"].(string); ok {
				details, _ := envelope["details"].(map[string]any)
				if details == nil {
					details = map[string]any{}
				}
				if code, ok := envelope["code"].(string); ok {
					details["code"] = code
				}
				return apperrors.NewRemoteError(status, msg, details)
			}
		}
		return apperrors.NewRemoteError(status, flattenFields(v), v)
	default:
		return apperrors.NewRemoteError(status, strings.Join(flatten(v), " "), nil)
	}
}

// flattenFields joins all messages, with detail and non_field_errors first
// and the remaining fields in key order.
func flattenFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "detail" || k == "non_field_errors" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	keys = append([]string{"detail", "non_field_errors"}, keys...)

	var parts []string
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			parts = append(parts, flatten(v)...)
		}
	}
	return strings.Join(parts, " ")
}

func flatten(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, flatten(item)...)
		}
		return out
	case map[string]any:
		if s := flattenFields(t); s != "" {
			return []string{s}
		}
		return nil
	default:
		return []string{fmt.Sprint(t)}
	}
}

// IsStatus reports whether err is a remote error with the given HTTP status.
func IsStatus(err error, status int) bool {
	de := apperrors.ToDomainError(err)
	return de != nil && de.Code == "REMOTE_REJECTED" && de.HTTPStatus == status
}
