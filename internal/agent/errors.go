package agent

import (
	"errors"
	"fmt"
)

// Domain errors for the agent package.
var (
	// ErrNoDashboard is returned when the agent replied without a dashboard.
	ErrNoDashboard = errors.New("agent: response contains no dashboard")

	// ErrMalformedDashboard is returned when a dashboard fails schema validation.
	ErrMalformedDashboard = errors.New("agent: malformed dashboard")

	// ErrInvalidResponse is returned when the reply body is not valid JSON.
	ErrInvalidResponse = errors.New("agent: invalid response")

	// ErrEmptyInput is returned for a blank request text.
	ErrEmptyInput = errors.New("agent: input is required")
)

// HTTPError is returned when the agent answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("agent: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("agent: unexpected status %d: %s", e.StatusCode, e.Body)
}
