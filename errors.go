// errors.go: structured error model for cascade cache operations
//
// Built on go-errors for rich error context, categorization and
// standardized error codes, mirroring the conventions the AGILira fragments
// share across packages.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cascade

import (
	goerrors "errors"

	"github.com/agilira/go-errors"
)

// Error codes for cascade operations.
const (
	// Caller errors: fail fast, before any backend/factory call.
	ErrCodeEmptyKey        errors.ErrorCode = "CASCADE_EMPTY_KEY"
	ErrCodeEmptyTag        errors.ErrorCode = "CASCADE_EMPTY_TAG"
	ErrCodeNilFactory      errors.ErrorCode = "CASCADE_NIL_FACTORY"
	ErrCodeConflictingTTL  errors.ErrorCode = "CASCADE_CONFLICTING_TTL"
	ErrCodeInvalidDuration errors.ErrorCode = "CASCADE_INVALID_DURATION"
	ErrCodeWrongMode       errors.ErrorCode = "CASCADE_WRONG_MODE"

	// Configuration errors: surfaced at registration/construction.
	ErrCodeInvalidConfig   errors.ErrorCode = "CASCADE_INVALID_CONFIG"
	ErrCodeUnknownCategory errors.ErrorCode = "CASCADE_UNKNOWN_CATEGORY"

	// Backend errors: propagate unchanged from Get/Set/Remove.
	ErrCodeBackendGet    errors.ErrorCode = "CASCADE_BACKEND_GET"
	ErrCodeBackendSet    errors.ErrorCode = "CASCADE_BACKEND_SET"
	ErrCodeBackendRemove errors.ErrorCode = "CASCADE_BACKEND_REMOVE"

	// Envelope/decode errors.
	ErrCodeEnvelopeDecode errors.ErrorCode = "CASCADE_ENVELOPE_DECODE"

	// Factory errors.
	ErrCodeFactoryFailed    errors.ErrorCode = "CASCADE_FACTORY_FAILED"
	ErrCodeFactoryPanic     errors.ErrorCode = "CASCADE_FACTORY_PANIC"
	ErrCodeFactoryCancelled errors.ErrorCode = "CASCADE_FACTORY_CANCELLED"
)

const (
	msgEmptyKey        = "key must be non-empty and non-whitespace"
	msgEmptyTag        = "tag must be non-empty and non-whitespace"
	msgNilFactory      = "factory function cannot be nil"
	msgConflictingTTL  = "ttl and sliding are mutually exclusive"
	msgInvalidDuration = "duration must be strictly positive"
	msgWrongMode       = "entry carries a value for the wrong backend mode"
	msgInvalidConfig   = "invalid cascade configuration"
	msgUnknownCategory = "category is not registered"
	msgBackendGet      = "backend Get failed"
	msgBackendSet      = "backend Set failed"
	msgBackendRemove   = "backend Remove failed"
	msgEnvelopeDecode  = "envelope decode failed"
	msgFactoryFailed   = "factory returned an error"
	msgFactoryPanic    = "factory panicked"
	msgFactoryCancelled = "factory was cancelled"
)

// NewErrEmptyKey reports a caller error: an empty or whitespace key.
func NewErrEmptyKey(operation string) error {
	return errors.NewWithField(ErrCodeEmptyKey, msgEmptyKey, "operation", operation)
}

// NewErrEmptyTag reports a caller error: an empty or whitespace tag.
func NewErrEmptyTag(operation string) error {
	return errors.NewWithField(ErrCodeEmptyTag, msgEmptyTag, "operation", operation)
}

// NewErrNilFactory reports a caller error: a nil factory passed to GetOrSet.
func NewErrNilFactory(key string) error {
	return errors.NewWithField(ErrCodeNilFactory, msgNilFactory, "key", key)
}

// NewErrConflictingTTL reports a caller error: both TTL and Sliding set.
func NewErrConflictingTTL(source string) error {
	return errors.NewWithField(ErrCodeConflictingTTL, msgConflictingTTL, "source", source)
}

// NewErrInvalidDuration reports a caller/configuration error: a
// non-positive duration where a strictly positive one is required.
func NewErrInvalidDuration(field string, value interface{}) error {
	return errors.NewWithContext(ErrCodeInvalidDuration, msgInvalidDuration, map[string]interface{}{
		"field": field,
		"value": value,
	})
}

// NewErrWrongMode reports a programming error: an entry's payload does not
// match the backend's fixed Mode.
func NewErrWrongMode(mode Mode) error {
	return errors.NewWithField(ErrCodeWrongMode, msgWrongMode, "mode", mode.String())
}

// NewErrInvalidConfig reports a configuration error at façade construction.
func NewErrInvalidConfig(reason string) error {
	return errors.NewWithField(ErrCodeInvalidConfig, msgInvalidConfig, "reason", reason)
}

// NewErrUnknownCategory reports a configuration error: Options.Category
// names a category that was never registered.
func NewErrUnknownCategory(category string) error {
	return errors.NewWithField(ErrCodeUnknownCategory, msgUnknownCategory, "category", category)
}

// NewErrBackendGet wraps a backend Get failure.
func NewErrBackendGet(key string, cause error) error {
	return errors.Wrap(cause, ErrCodeBackendGet, msgBackendGet).WithContext("key", key).AsRetryable()
}

// NewErrBackendSet wraps a backend Set failure.
func NewErrBackendSet(key string, cause error) error {
	return errors.Wrap(cause, ErrCodeBackendSet, msgBackendSet).WithContext("key", key).AsRetryable()
}

// NewErrBackendRemove wraps a backend Remove failure.
func NewErrBackendRemove(key string, cause error) error {
	return errors.Wrap(cause, ErrCodeBackendRemove, msgBackendRemove).WithContext("key", key).AsRetryable()
}

// NewErrEnvelopeDecode reports a corrupted or truncated byte-mode envelope.
func NewErrEnvelopeDecode(key string, reason string) error {
	return errors.NewWithContext(ErrCodeEnvelopeDecode, msgEnvelopeDecode, map[string]interface{}{
		"key":    key,
		"reason": reason,
	})
}

// NewErrFactoryFailed wraps a factory error returned to a GetOrSet caller.
func NewErrFactoryFailed(key string, cause error) error {
	return errors.Wrap(cause, ErrCodeFactoryFailed, msgFactoryFailed).WithContext("key", key)
}

// NewErrFactoryPanic wraps a recovered factory panic.
func NewErrFactoryPanic(key string, panicValue interface{}) error {
	return errors.NewWithContext(ErrCodeFactoryPanic, msgFactoryPanic, map[string]interface{}{
		"key":   key,
		"panic": panicValue,
	}).WithSeverity("critical")
}

// NewErrFactoryCancelled reports that a factory's context was cancelled.
func NewErrFactoryCancelled(key string) error {
	return errors.NewWithField(ErrCodeFactoryCancelled, msgFactoryCancelled, "key", key)
}

// IsNotFound reports whether err carries ErrCodeEnvelopeDecode, the code
// for a byte-mode blob that cannot be decoded and is therefore treated as
// absent. Cascade defines no separate not-found code, and its own lookup
// state machine never surfaces a miss as an error.
func IsNotFound(err error) bool {
	return errors.HasCode(err, ErrCodeEnvelopeDecode)
}

// IsCallerError reports whether err originates from caller-supplied
// invalid input (key/tag validation, conflicting options, nil factory).
func IsCallerError(err error) bool {
	if err == nil {
		return false
	}
	switch GetErrorCode(err) {
	case ErrCodeEmptyKey, ErrCodeEmptyTag, ErrCodeNilFactory, ErrCodeConflictingTTL:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err can be retried, per go-errors'
// Retryable marker interface.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var retryable errors.Retryable
	if goerrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// GetErrorCode extracts the cascade error code from err, or "" if err does
// not carry one.
func GetErrorCode(err error) errors.ErrorCode {
	if err == nil {
		return ""
	}
	var coder errors.ErrorCoder
	if goerrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ""
}

// GetErrorContext extracts the structured context map from err, or nil.
func GetErrorContext(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	var cascadeErr *errors.Error
	if goerrors.As(err, &cascadeErr) {
		return cascadeErr.Context
	}
	return nil
}
