package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/hasan-mia/techstore-ui/pkg/errors"
)

// downstreamError accepts both error body shapes seen from backend APIs:
// {"error":{"code","message"}} and {"success":false,"message"}.
type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// maps it to an AppError carrying the same semantics.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", service, resp.StatusCode, err)
	}

	code, message := "", string(body)
	var parsed downstreamError
	if json.Unmarshal(body, &parsed) == nil {
		switch {
		case parsed.Error != nil:
			code, message = parsed.Error.Code, parsed.Error.Message
		case parsed.Message != "":
			message = parsed.Message
		}
	}

	return mapStatus(resp.StatusCode, code, message, service)
}

func mapStatus(status int, code, message, service string) error {
	qualified := fmt.Sprintf("%s: %s", service, message)

	switch {
	case status == http.StatusNotFound:
		return &apperrors.AppError{Code: "NOT_FOUND", Message: qualified, Status: status, Err: apperrors.ErrNotFound}
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status >= 500:
		return apperrors.Unavailable(qualified, fmt.Errorf("status %d", status))
	default:
		if code == "" {
			code = http.StatusText(status)
		}
		return &apperrors.AppError{Code: code, Message: qualified, Status: status}
	}
}
