package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized means the credential is bad or expired.
	ErrUnauthorized = errors.New("api: unauthorized")
	// ErrForbidden means the credential is structurally valid but the account
	// is not approved for access yet.
	ErrForbidden = errors.New("api: forbidden")
	// ErrNotFound means the addressed resource does not exist.
	ErrNotFound = errors.New("api: not found")
	// ErrInvalidInput means the call was rejected before any network traffic.
	ErrInvalidInput = errors.New("api: invalid input")
)

// ServerError covers the remaining failure statuses.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: server error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("api: server error (status %d): %s", e.StatusCode, e.Message)
}

// classifyStatus maps an HTTP failure status to the client error taxonomy.
func classifyStatus(status int, detail string) error {
	detail = strings.TrimSpace(detail)
	switch status {
	case http.StatusUnauthorized:
		if detail == "" {
			return ErrUnauthorized
		}
		return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
	case http.StatusForbidden:
		if detail == "" {
			return ErrForbidden
		}
		return fmt.Errorf("%w: %s", ErrForbidden, detail)
	case http.StatusNotFound:
		if detail == "" {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %s", ErrNotFound, detail)
	default:
		return &ServerError{StatusCode: status, Message: detail}
	}
}

// classifyResponse drains the failure body and classifies the status. The
// backend reports failures as {"detail": "..."}.
func classifyResponse(resp *http.Response) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(body, &payload)
	return classifyStatus(resp.StatusCode, payload.Detail)
}

// outcomeLabel names an error class for metrics.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		var srv *ServerError
		if errors.As(err, &srv) {
			return "server_error"
		}
		return "network_error"
	}
}
