package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrStatus is matched by NetworkErrors caused by a non-2xx response.
var ErrStatus = errors.New("unsuccessful status")

// NetworkError reports a rejected request or a non-2xx response.
type NetworkError struct {
	Op         string
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("backend: %s %s: %d %s", e.Op, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	if e.Err == nil && e.StatusCode != 0 {
		return ErrStatus
	}
	return e.Err
}
