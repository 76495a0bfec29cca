package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrServerUnreachable indicates the herd server could not be reached.
	// Writes hitting this are queued, never surfaced as failures.
	ErrServerUnreachable = errors.New("herd server is unreachable")

	// ErrAuthFailed indicates the API token was rejected
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrRecordNotFound indicates the requested record does not exist
	ErrRecordNotFound = errors.New("record not found")

	// ErrValidation indicates the server rejected the payload
	ErrValidation = errors.New("payload rejected by server")

	// ErrSyncHalted indicates a replay failed mid-drain; the failing
	// change and everything after it remain queued.
	ErrSyncHalted = errors.New("sync halted on failed replay")

	// ErrStaleOperation indicates a network call resolved after its
	// coordinator generation was invalidated; the result was discarded.
	ErrStaleOperation = errors.New("operation resolved after invalidation")
)

// IsConnectivity reports whether err should be treated as a network
// reachability problem rather than a server-side rejection.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrServerUnreachable)
}
