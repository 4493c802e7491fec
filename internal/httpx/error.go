package httpx

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is an HTTP failure status. Body holds the response body text
// when it was readable; the message falls back to the status code otherwise.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("request failed with status %d", e.Code)
}

// CheckStatus returns nil for a 2xx response, otherwise a *StatusError whose
// message is the response body text. It consumes the body on failure.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var body string
	if text, err := io.ReadAll(resp.Body); err == nil {
		body = strings.TrimSpace(string(text))
	}
	return &StatusError{Code: resp.StatusCode, Body: body}
}
