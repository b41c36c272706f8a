package forecast

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransport means the request never produced a response.
	ErrTransport = errors.New("network request failed")
	// ErrDecode means the response body was not the expected JSON.
	ErrDecode = errors.New("invalid response body")
	// ErrEmptyData means the response parsed but held no forecast entries.
	ErrEmptyData = errors.New("no weather data available for this location")
)

// HTTPStatusError is returned for a non-2xx response.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// UserMessage collapses any fetch failure into the message shown to users.
func UserMessage(err error) string {
	reason := "unknown error"
	if err != nil {
		reason = strings.TrimSuffix(err.Error(), ".")
	}
	return fmt.Sprintf("Failed to fetch weather data: %s. Please try again later.", reason)
}
