package pushover

import (
	"fmt"
	"strings"
)

// ValidationError reports a request that must not be sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError reports a request that did not produce a usable response.
type TransportError struct {
	Op         string
	StatusCode int // 0 if no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (http %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError carries the error strings returned by Pushover verbatim.
type ServiceError struct {
	Request string
	Errors  []string
}

func (e *ServiceError) Error() string {
	if len(e.Errors) == 0 {
		return "pushover rejected the message"
	}
	return "pushover rejected the message: " + strings.Join(e.Errors, "; ")
}

// ReceiptQueryError reports a failed receipt lookup. Transport failures and
// non-success statuses are not distinguished.
type ReceiptQueryError struct {
	Receipt string
	Err     error
}

func (e *ReceiptQueryError) Error() string {
	return fmt.Sprintf("receipt %s: %v", e.Receipt, e.Err)
}

func (e *ReceiptQueryError) Unwrap() error { return e.Err }

// PollAbortedError means the receipt could not be queried too many times in a
// row. The notification itself was delivered.
type PollAbortedError struct {
	Receipt  string
	Failures int
	Last     error
}

func (e *PollAbortedError) Error() string {
	return fmt.Sprintf("gave up waiting on receipt %s after %d consecutive failures: %v",
		e.Receipt, e.Failures, e.Last)
}

func (e *PollAbortedError) Unwrap() error { return e.Last }

// PreconditionError is returned when waiting is requested for a notification
// that has no receipt.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "cannot wait for acknowledgment: " + e.Reason
}
