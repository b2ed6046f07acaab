package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx answer from the API.
type Error struct {
	Method  string
	Path    string
	Status  int
	Payload []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message())
}

// Message is the human readable part of the payload. FastAPI reports
// {"detail": "..."} for handled errors and {"detail": [{"loc": [...], "msg": "..."}]}
// for request validation.
func (e *Error) Message() string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(e.Payload, &body); err != nil || len(body.Detail) == 0 {
		if text := strings.TrimSpace(string(e.Payload)); text != "" && len(text) < 200 {
			return text
		}
		return http.StatusText(e.Status)
	}

	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err == nil {
		return detail
	}

	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if field := lastLoc(it.Loc); field != "" {
				msgs = append(msgs, field+": "+it.Msg)
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return http.StatusText(e.Status)
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok && s != "body" {
		return s
	}
	return ""
}

// StatusOf reports the HTTP status carried by err, or 0 when err is not an
// API answer (transport failure, decode failure).
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func IsUnauthorized(err error) bool { return StatusOf(err) == http.StatusUnauthorized }

func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }

func IsValidation(err error) bool {
	s := StatusOf(err)
	return s == http.StatusBadRequest || s == http.StatusUnprocessableEntity
}
