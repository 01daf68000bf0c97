// Package fault defines the participant-facing error taxonomy. Every core
// operation resolves to one of these sentinels; handlers map them to HTTP
// statuses in one place.
package fault

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound covers unknown, draft and closed event tokens alike, so a
	// probe cannot distinguish a closed event from a nonexistent one.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSession means the session row is absent. Terminal.
	ErrInvalidSession = errors.New("invalid session")

	// ErrInvalidAsset means the asset does not belong to the submitting
	// session. Terminal; indicates a stale or tampering client.
	ErrInvalidAsset = errors.New("invalid media asset")

	// ErrAlreadySubmitted is the conflict outcome of duplicate submits. The
	// prior submission id is never revealed; clients route to "done".
	ErrAlreadySubmitted = errors.New("already submitted")

	// ErrUnavailable is a transient storage or broker failure. Retryable for
	// session start and upload; submit retries surface as ErrAlreadySubmitted.
	ErrUnavailable = errors.New("temporarily unavailable")
)

// HTTPStatus maps a taxonomy error to its response status. Unrecognized
// errors are treated as transient.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidSession), errors.Is(err, ErrInvalidAsset):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadySubmitted):
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}
