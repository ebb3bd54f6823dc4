// Package errors provides custom error types for lookersync.
// These errors let callers distinguish configuration, authentication,
// parse and API failures programmatically instead of matching strings.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for lookersync
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrCredentialsRequired indicates that credentials are required but not provided
	ErrCredentialsRequired = errors.New("credentials required")

	// ErrCredentialsInvalid indicates that the provided credentials were rejected
	ErrCredentialsInvalid = errors.New("credentials invalid")

	// ErrInstanceUnavailable indicates that a Looker instance is temporarily unavailable
	ErrInstanceUnavailable = errors.New("instance unavailable")

	// ErrRateLimited indicates that the API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents a non-success response from a Looker instance.
type APIError struct {
	Instance   string // Base URL of the instance
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	where := e.Instance
	if e.Endpoint != "" {
		where = e.Endpoint
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", where, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", where, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return target == ErrRateLimited
	case e.StatusCode == http.StatusNotFound:
		return target == ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return target == ErrAlreadyExists
	case e.StatusCode >= 500:
		return target == ErrInstanceUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(instance string, statusCode int, message string) *APIError {
	return &APIError{
		Instance:   instance,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// SyncError represents a failed reconciliation pass for one environment.
type SyncError struct {
	Environment string
	Step        string
	Err         error
}

// Error implements the error interface
func (e *SyncError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("sync error for environment %s during %s: %v", e.Environment, e.Step, e.Err)
	}
	return fmt.Sprintf("sync error for environment %s: %v", e.Environment, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SyncError) Unwrap() error {
	return e.Err
}

// NewSyncError creates a new SyncError
func NewSyncError(environment, step string, err error) *SyncError {
	return &SyncError{
		Environment: environment,
		Step:        step,
		Err:         err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsCredentialsError checks if an error is related to credentials
func IsCredentialsError(err error) bool {
	return errors.Is(err, ErrCredentialsRequired) || errors.Is(err, ErrCredentialsInvalid)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsInstanceUnavailable checks if an error indicates the Looker instance is unavailable
func IsInstanceUnavailable(err error) bool {
	return errors.Is(err, ErrInstanceUnavailable)
}

// Failure kinds returned by Classify.
const (
	KindCanceled            = "canceled"
	KindCredentials         = "credentials"
	KindRateLimited         = "rate_limited"
	KindInstanceUnavailable = "instance_unavailable"
	KindAlreadyExists       = "already_exists"
	KindNotFound            = "not_found"
	KindInvalidInput        = "invalid_input"
	KindUnknown             = "unknown"
)

// Classify names the kind of a failure for logs and invocation results.
// It returns "" for a nil error.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case IsCanceled(err):
		return KindCanceled
	case IsCredentialsError(err):
		return KindCredentials
	case IsRateLimited(err):
		return KindRateLimited
	case IsInstanceUnavailable(err):
		return KindInstanceUnavailable
	case IsAlreadyExists(err):
		return KindAlreadyExists
	case IsNotFound(err):
		return KindNotFound
	case IsValidationError(err):
		return KindInvalidInput
	}
	return KindUnknown
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "txt", "json", "yaml"
	Source  string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Source != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s line %d: %s", e.Format, e.Source, e.Line, e.Message)
	}
	if e.Source != "" {
		return fmt.Sprintf("parse error in %s %s: %s", e.Format, e.Source, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewParseError creates a new ParseError
func NewParseError(format, source string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		Source:  source,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "update", "fetch", "set"
	Resource  string // "user attribute", "group", "group values", "look"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// AuthenticationError represents a failed login against a Looker instance.
type AuthenticationError struct {
	Instance string
	Method   string // "client_credentials", "token"
	Message  string
	Err      error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Instance != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Instance, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrCredentialsInvalid
}

// NewAuthenticationError creates a new AuthenticationError
func NewAuthenticationError(instance, method, message string, err error) *AuthenticationError {
	return &AuthenticationError{
		Instance: instance,
		Method:   method,
		Message:  message,
		Err:      err,
	}
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, source string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, source, err.Error(), err)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(instance string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Instance:   instance,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
