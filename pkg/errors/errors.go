package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents DNS/connection failures
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeAccessDenied represents anti-bot blocks (HTTP 403 and friends)
	ErrorTypeAccessDenied ErrorType = "access_denied"
	// ErrorTypeTimeout represents fetch deadline expirations
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeRateLimit represents rate limiting (HTTP 429/430)
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeExtraction represents scraping failures on fetched markup
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeStore represents persistence layer failures
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeValidation represents malformed request input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotification represents email dispatch failures
	ErrorTypeNotification ErrorType = "notification"
)

// Extraction reason codes carried in TrackerError.Message
const (
	ReasonNoPriceFound        = "no-price-found"
	ReasonUnsupportedPlatform = "unsupported-platform"
	ReasonEmptyTitle          = "empty-title"
	ReasonElementNotFound     = "element-not-found"
)

// TrackerError represents a pipeline-specific error
type TrackerError struct {
	Type     ErrorType
	Platform string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *TrackerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Platform, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Platform, e.Message)
}

// Unwrap returns the underlying error
func (e *TrackerError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if a later sweep may succeed without intervention
func (e *TrackerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeStore, ErrorTypeNotification:
		return true
	default:
		return false
	}
}

// New creates a new TrackerError
func New(errType ErrorType, platform, message string, err error) *TrackerError {
	return &TrackerError{
		Type:     errType,
		Platform: platform,
		Message:  message,
		Err:      err,
	}
}

// NewNetwork creates a new network error
func NewNetwork(platform, message string, err error) *TrackerError {
	return New(ErrorTypeNetwork, platform, message, err)
}

// NewAccessDenied creates a new access denied error
func NewAccessDenied(platform, message string) *TrackerError {
	return New(ErrorTypeAccessDenied, platform, message, nil)
}

// NewTimeout creates a new timeout error
func NewTimeout(platform, message string, err error) *TrackerError {
	return New(ErrorTypeTimeout, platform, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(platform, message string) *TrackerError {
	return New(ErrorTypeRateLimit, platform, message, nil)
}

// NewExtraction creates a new extraction error with a reason code
func NewExtraction(platform, reason string) *TrackerError {
	return New(ErrorTypeExtraction, platform, reason, nil)
}

// NewStore creates a new store error
func NewStore(message string, err error) *TrackerError {
	return New(ErrorTypeStore, "", message, err)
}

// NewValidation creates a new validation error
func NewValidation(message string) *TrackerError {
	return New(ErrorTypeValidation, "", message, nil)
}

// NewNotification creates a new notification error
func NewNotification(message string, err error) *TrackerError {
	return New(ErrorTypeNotification, "", message, err)
}

// TypeOf returns the ErrorType of err, or an empty string when err is
// not a TrackerError
func TypeOf(err error) ErrorType {
	var te *TrackerError
	if errors.As(err, &te) {
		return te.Type
	}
	return ""
}

// IsExtraction reports whether err is an extraction error with the given reason code
func IsExtraction(err error, reason string) bool {
	var te *TrackerError
	if errors.As(err, &te) {
		return te.Type == ErrorTypeExtraction && te.Message == reason
	}
	return false
}
