package gateway

import "github.com/cockroachdb/errors"

var (
	// ErrTransport marks failures where the request never completed
	// (connection refused, timeout, DNS).
	ErrTransport = errors.New("GATEWAY_UNREACHABLE")

	// ErrRejected marks non-2xx responses. The gateway's error message, when
	// present, is carried in the wrapped error text.
	ErrRejected = errors.New("GATEWAY_REJECTED")
)
