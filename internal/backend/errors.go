package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx backend response. The body is kept (truncated) for
// diagnostics; callers branch on StatusCode.
type APIError struct {
	StatusCode int
	Path       string
	Body       []byte
}

func (e *APIError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
