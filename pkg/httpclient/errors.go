package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/ConnorDW-SA/marketplace/pkg/errors"
)

// remoteError mirrors the error envelope written by httputil.WriteError.
type remoteError struct {
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx response and turns it into
// an AppError when the body carries the standard error envelope. The body
// is consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var remote remoteError
	if json.Unmarshal(body, &remote) != nil || remote.Error == nil {
		return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(body))
	}

	msg := fmt.Sprintf("%s: %s", serviceName, remote.Error.Message)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &apperrors.AppError{Code: remote.Error.Code, Message: msg, Status: http.StatusNotFound, Err: apperrors.ErrNotFound}
	case resp.StatusCode == http.StatusBadRequest && len(remote.Error.Fields) > 0:
		return apperrors.Validation(msg, remote.Error.Fields)
	case resp.StatusCode == http.StatusBadRequest:
		return apperrors.InvalidInput(msg)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return &apperrors.AppError{Code: remote.Error.Code, Message: msg, Status: http.StatusServiceUnavailable, Err: apperrors.ErrServiceUnavail}
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, resp.StatusCode, remote.Error.Code, remote.Error.Message)
	default:
		return &apperrors.AppError{Code: remote.Error.Code, Message: msg, Status: resp.StatusCode}
	}
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
