package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ConfigurationError reports a missing credential or setting. The message
// tells the operator what to set.
type ConfigurationError struct {
	Integration string
	Message     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s not configured: %s", e.Integration, e.Message)
}

// AuthError reports that an upstream provider rejected our credentials.
type AuthError struct {
	Integration string
	Status      int
	Err         error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("%s rejected credentials", e.Integration)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg + "; reauthenticate the integration"
}

func (e *AuthError) Unwrap() error { return e.Err }

// UpstreamError reports a non-2xx response while listing external records.
type UpstreamError struct {
	Integration string
	Status      int
	Body        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s request failed: status=%d body=%s", e.Integration, e.Status, e.Body)
}

// PartialRecordError is one record that failed to reconcile. It never aborts a batch.
type PartialRecordError struct {
	Key string
	Err error
}

func (e *PartialRecordError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e *PartialRecordError) Unwrap() error { return e.Err }

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("conflict")
