package rbac

import "errors"

// Sentinel errors returned by mutating operations. Evaluation failures
// (missing authentication, disabled account) are not errors; they are
// encoded as non-granted results, since denial is an expected outcome.
var (
	// ErrInsufficientPermission is returned when the caller lacks the
	// permission required for a mutating call.
	ErrInsufficientPermission = errors.New("insufficient permission")

	// ErrNotFound is returned when a role, assignment or elevation
	// request does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned on duplicate active assignments or
	// duplicate pending elevation requests.
	ErrConflict = errors.New("conflict")

	// ErrSelfModification is returned when a caller tries to assign or
	// revoke their own administrator role.
	ErrSelfModification = errors.New("cannot modify own administrator role")

	// ErrDurationExceeded is returned when an elevation request asks
	// for more than the configured maximum duration.
	ErrDurationExceeded = errors.New("requested duration exceeds maximum")
)
