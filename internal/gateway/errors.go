package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// RemoteError is a non-success response from the backend. Detail carries the
// human-readable message from the structured error body when the backend sent
// one, else a message synthesized from the status code.
type RemoteError struct {
	Status int
	Detail string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
}

// errorBody is the FastAPI-style structured error payload.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// remoteError builds a RemoteError from a response status and body.
func remoteError(status int, body []byte) *RemoteError {
	detail := extractDetail(body)
	if detail == "" {
		detail = http.StatusText(status)
		if detail == "" {
			detail = fmt.Sprintf("status %d", status)
		}
	}
	return &RemoteError{Status: status, Detail: detail}
}

// extractDetail pulls the detail field out of a structured error body.
// Non-string details (validation error arrays and the like) are kept as
// their raw JSON text.
func extractDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return s
	}
	return string(eb.Detail)
}
