package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/modelyard/myd/internal/errdefs"
)

// Backend error body markers. The backend reports some 400/404 conditions
// only through message text, so classification inspects the body.
const (
	markerMissingSpec = "missing spec"
	markerDuplicated  = "Duplicated entity"
	markerNoSuchName  = "No such EntityName"
)

// apiError maps a non-2xx response to the error taxonomy.
func apiError(status int, body []byte) error {
	text := strings.TrimSpace(string(body))
	switch status {
	case http.StatusBadRequest:
		switch {
		case strings.Contains(text, markerMissingSpec):
			return fmt.Errorf("%w: %s", errdefs.ErrMissingSpec, text)
		case strings.Contains(text, markerDuplicated):
			return fmt.Errorf("%w: %s", errdefs.ErrAlreadyExists, text)
		default:
			return fmt.Errorf("%w: %s", errdefs.ErrBadRequest, text)
		}
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: HTTP 401: %s", errdefs.ErrUnauthorized, text)
	case http.StatusForbidden:
		return fmt.Errorf("%w: HTTP 403: %s", errdefs.ErrForbidden, text)
	case http.StatusNotFound:
		if strings.Contains(text, markerNoSuchName) {
			return fmt.Errorf("%w: %s", errdefs.ErrNotExists, text)
		}
		return fmt.Errorf("%w: not found: %s", errdefs.ErrBackend, text)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", errdefs.ErrBackend, status, text)
	}
}

// transportError maps a transport-level failure. Transport failures are
// never retried automatically.
func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", errdefs.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", errdefs.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", errdefs.ErrConnection, err)
}
