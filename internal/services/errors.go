package services

import (
	"errors"
	"fmt"

	apperrors "github.com/courseworks/registration-service/internal/errors"
	"github.com/courseworks/registration-service/internal/repositories"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")

	// Student specific errors
	ErrStudentNotFound    = errors.New("student not found")
	ErrStudentMissingUser = errors.New("student must embed a user record")

	// Course specific errors
	ErrCourseNotFound            = errors.New("course not found")
	ErrInvalidAvailabilityStatus = errors.New("invalid availability status code")

	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidRole  = errors.New("invalid user role")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// PermissionError reports a caller that lacks the role or ownership required
// for a mutation.
type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// InternalError reports a multi-step flow left partially applied after a
// downstream failure, naming the step that failed so the caller can decide
// on retry.
type InternalError struct {
	Step string
	Err  error
}

func (ie *InternalError) Error() string {
	return fmt.Sprintf("internal error at step %q: %v", ie.Step, ie.Err)
}

func (ie *InternalError) Unwrap() error { return ie.Err }

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func NewInternalError(step string, err error) *InternalError {
	return &InternalError{Step: step, Err: err}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrCourseNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden) {
		return true
	}
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrInvalidAvailabilityStatus) ||
		errors.Is(err, ErrStudentMissingUser) ||
		errors.Is(err, ErrInvalidRole) {
		return true
	}
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *ValidationError
	return errors.As(err, &single)
}

// IsInternal checks if error represents a partially-applied flow
func IsInternal(err error) bool {
	if errors.Is(err, ErrInternalError) {
		return true
	}
	var ie *InternalError
	return errors.As(err, &ie)
}

// IsStore checks if error originated in the persistence layer
func IsStore(err error) bool {
	return repositories.IsStoreError(err)
}
