package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

const maxErrorBody = 64 << 10

// errorPayload covers the error shapes the backend produces: a plain message,
// a list of messages, or a field map.
type errorPayload struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

func classify(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload errorPayload
	_ = json.Unmarshal(raw, &payload)
	messages := stringList(payload.Message)
	fields := fieldMap(payload.Errors)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d", shared.ErrForbidden, resp.StatusCode)
	case http.StatusNotFound:
		return fmt.Errorf("%w: status %d", shared.ErrNotFound, resp.StatusCode)
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict:
		return &shared.ValidationError{Message: Flatten(messages, fields), Fields: fields}
	}
	detail := strings.Join(messages, "; ")
	if detail == "" {
		detail = payload.Error
	}
	if resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented {
		return fmt.Errorf("%w: status %d %s", shared.ErrUnavailable, resp.StatusCode, detail)
	}
	return fmt.Errorf("%w: status %d %s", shared.ErrUpstream, resp.StatusCode, detail)
}

// Flatten joins general messages and per-field complaints into one sentence
// list, fields in name order.
func Flatten(messages []string, fields map[string][]string) string {
	parts := make([]string, 0, len(messages)+len(fields))
	for _, m := range messages {
		if m = strings.TrimSpace(m); m != "" {
			parts = append(parts, m)
		}
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		complaints := make([]string, 0, len(fields[name]))
		for _, c := range fields[name] {
			if c = strings.TrimSpace(c); c != "" {
				complaints = append(complaints, c)
			}
		}
		if len(complaints) > 0 {
			parts = append(parts, name+": "+strings.Join(complaints, ", "))
		}
	}
	if len(parts) == 0 {
		return "The server rejected the request."
	}
	return strings.Join(parts, "; ")
}

func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

func fieldMap(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	var multi map[string][]string
	if err := json.Unmarshal(raw, &multi); err == nil {
		return multi
	}
	var single map[string]string
	if err := json.Unmarshal(raw, &single); err == nil {
		out := make(map[string][]string, len(single))
		for k, v := range single {
			out[k] = []string{v}
		}
		return out
	}
	var list []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make(map[string][]string, len(list))
		for _, item := range list {
			out[item.Field] = append(out[item.Field], item.Message)
		}
		return out
	}
	return nil
}
