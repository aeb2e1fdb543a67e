package source

import (
	"errors"
	"fmt"
)

// AuthError means the source credential is invalid or expired. Credentials
// are shared across all targets, so one AuthError invalidates the whole cycle
// for the run; the reconciler aborts rather than retry.
type AuthError struct {
	Source string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Source, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError means the target does not exist upstream for this source.
// Only the (target, source) pair is skipped.
type NotFoundError struct {
	Source string
	Target string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s not found", e.Source, e.Target)
}

// TransientError marks network, rate-limit and server-side failures that are
// eligible for bounded retry with backoff.
type TransientError struct {
	Source string
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient failure: %v", e.Source, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// MalformedResponseError means the upstream answered with an unexpected
// shape. Logged and recorded as a failure for that (target, source) pair.
type MalformedResponseError struct {
	Source string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Source, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}
