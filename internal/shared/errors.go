package shared

import "errors"

// Error taxonomy shared across modules. Handlers map these onto HTTP
// problem responses; services wrap them with context via fmt.Errorf.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrAuthentication indicates a missing or invalid principal.
	ErrAuthentication = errors.New("authentication required")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAuthorization indicates a valid principal without the required permission.
	ErrAuthorization = errors.New("insufficient permissions")
	// ErrValidation indicates rejected input, correctable by the caller.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState indicates a document is not in the state the transition expects.
	ErrInvalidState = errors.New("invalid document state")
	// ErrConflict indicates a concurrent decision race lost at the commit boundary.
	ErrConflict = errors.New("already decided")
	// ErrBusy indicates the per-document lock could not be acquired in time.
	ErrBusy = errors.New("document busy")
	// ErrDelivery indicates an audit or notification sink failure. Logged, never
	// surfaced as a failure of the primary action.
	ErrDelivery = errors.New("delivery failed")
)
