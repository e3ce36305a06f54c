// Package client is the customer-side persistence bridge. It talks to the
// marketplace API and keeps a local SQLite copy of the cart for signed-out
// browsing and offline use.
package client

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired means the server rejected the stored credential. The
	// credential has been cleared and the caller must sign in again.
	ErrSessionExpired = errors.New("session expired")
	// ErrStorageUnavailable means the local cache could not be written. The
	// returned cart is still usable but will not survive a restart.
	ErrStorageUnavailable = errors.New("local cart storage unavailable")
	ErrNotAuthenticated   = errors.New("not signed in")
	ErrUnavailable        = errors.New("server unreachable")
	ErrTimeout            = errors.New("request timed out")

	errUnauthorized = errors.New("unauthorized")
)

// StatusError is a non-2xx answer from the API other than 401.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}
