package model

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrInvalidTransition    = errors.New("invalid job status transition")
	ErrInvalidState         = errors.New("invalid or expired oauth state")
	ErrUnsupportedOperation = errors.New("operation not supported by platform")
)

// AuthExchangeError is returned when a platform rejects an authorization code or token exchange.
type AuthExchangeError struct {
	Platform   Platform
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *AuthExchangeError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Platform, e.Op)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthExchangeError) Unwrap() error { return e.Err }

// Transient is true when the platform never judged the grant, e.g. a 5xx or a failed round trip.
func (e *AuthExchangeError) Transient() bool {
	if e.Detail == "invalid_grant" {
		return false
	}
	switch {
	case e.StatusCode == 429 || e.StatusCode >= 500:
		return true
	case e.StatusCode == 0:
		return e.Err != nil
	}
	return false
}

// CredentialExpiredError means the stored credential cannot be used and the user must reconnect.
type CredentialExpiredError struct {
	Platform Platform
	Reason   string
	Err      error
}

func (e *CredentialExpiredError) Error() string {
	msg := fmt.Sprintf("%s credential unusable (%s), reconnect required", e.Platform, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CredentialExpiredError) Unwrap() error { return e.Err }

// PublishError is a failed publish. Retryable failures may succeed if the job is resubmitted.
type PublishError struct {
	Platform  Platform
	Retryable bool
	Detail    string
	Err       error
}

func (e *PublishError) Error() string {
	msg := fmt.Sprintf("%s publish failed: %s", e.Platform, e.Detail)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PublishError) Unwrap() error { return e.Err }

// ConfigurationError reports missing platform client settings.
type ConfigurationError struct {
	Platform Platform
	Field    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured: missing %s", e.Platform, e.Field)
}

// ClassifyError maps an error to the kind and retryability recorded on a publish attempt.
func ClassifyError(err error) (ErrorKind, bool) {
	var (
		pubErr  *PublishError
		credErr *CredentialExpiredError
		authErr *AuthExchangeError
		cfgErr  *ConfigurationError
	)
	switch {
	case errors.As(err, &pubErr):
		return ErrorKindPublish, pubErr.Retryable
	case errors.As(err, &credErr):
		return ErrorKindCredentialExpired, false
	case errors.As(err, &authErr):
		return ErrorKindAuthExchange, authErr.Transient()
	case errors.As(err, &cfgErr):
		return ErrorKindConfiguration, false
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorKindPublish, true
	}
	return ErrorKindInternal, false
}
