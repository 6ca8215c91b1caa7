// Package errdefs defines the error taxonomy shared by the remote and
// local backends. Callers classify failures with errors.Is against these
// sentinels; messages carry the detail.
package errdefs

import "errors"

var (
	// ErrConfiguration signals a missing required credential, a missing
	// client id, or an unsupported backend API level. Never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnauthorized signals a 401 that survived the single
	// refresh-and-retry cycle, or an exhausted refresh.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden signals a 403.
	ErrForbidden = errors.New("forbidden")

	// ErrBadRequest signals a generic 400.
	ErrBadRequest = errors.New("bad request")

	// ErrMissingSpec signals the backend-specific missing-spec 400.
	ErrMissingSpec = errors.New("missing spec")

	// ErrAlreadyExists signals a duplicate entity, remote or local.
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrNotExists signals a lookup miss, remote or local.
	ErrNotExists = errors.New("entity does not exist")

	// ErrBackend is the catch-all for unexpected backend responses and
	// unparseable bodies.
	ErrBackend = errors.New("backend error")

	// ErrTimeout signals a transport-level request timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrConnection signals a transport-level connection failure.
	ErrConnection = errors.New("connection failed")

	// ErrUnsupported signals an operation the chosen backend cannot
	// serve, such as search against the local store.
	ErrUnsupported = errors.New("operation not supported")
)
