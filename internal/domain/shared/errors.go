// Package shared contains common domain types, errors and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyValue   = errors.New("value cannot be empty")
	ErrInvalidRange = errors.New("invalid range")

	// Integrity errors: stored data contradicts itself.
	ErrIntegrity = errors.New("data integrity violation")

	// Configuration errors: the deployment is missing required data.
	// Hosts should stop rather than carry on with a guessed value.
	ErrMisconfigured = errors.New("misconfigured")

	// Persistence errors
	ErrNoRowsAffected = errors.New("no rows affected")
	ErrStorage        = errors.New("storage failure")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "identity", "timetable", "homework"
	Op      string // Operation that failed, e.g., "Create", "Resolve"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Identity domain errors
var (
	ErrUserNotFound       = NewDomainError("identity", "Find", ErrNotFound, "user not found")
	ErrUsernameTaken      = NewDomainError("identity", "Create", ErrAlreadyExists, "username already taken")
	ErrUserInvalid        = NewDomainError("identity", "Resolve", ErrIntegrity, "user invalid")
	ErrEmptyUsername      = NewDomainError("identity", "Validate", ErrEmptyValue, "username is required")
	ErrEmptyName          = NewDomainError("identity", "Validate", ErrEmptyValue, "forename and surname are required")
	ErrEmptyPassword      = NewDomainError("identity", "Validate", ErrEmptyValue, "password is required")
	ErrInvalidUserType    = NewDomainError("identity", "Validate", ErrInvalidInput, "invalid user type")
	ErrPrincipalNotFound  = NewDomainError("identity", "Link", ErrNotFound, "principal not found")
	ErrEmptyDeviceID      = NewDomainError("identity", "Validate", ErrEmptyValue, "device id is required")
	ErrMembershipExists   = NewDomainError("identity", "Link", ErrAlreadyExists, "membership already exists")
	ErrSettingNotFound    = NewDomainError("settings", "Get", ErrMisconfigured, "required setting is missing")
	ErrContactDetailsGone = NewDomainError("school", "FindContactDetails", ErrNotFound, "Contact details not found")
)

// School domain errors
var (
	ErrSchoolNotFound   = NewDomainError("school", "Find", ErrNotFound, "school not found")
	ErrEmployeeNotFound = NewDomainError("school", "FindEmployee", ErrNotFound, "employee not found")
	ErrStudentNotFound  = NewDomainError("school", "FindStudent", ErrNotFound, "student not found")
	ErrEmptySchoolID    = NewDomainError("school", "Validate", ErrInvalidID, "school id is required")
	ErrEmptyEmployeeID  = NewDomainError("school", "Validate", ErrInvalidID, "employee id is required")
)

// Timetable domain errors
var (
	ErrPeriodNotFound  = NewDomainError("timetable", "FindPeriod", ErrNotFound, "period not found")
	ErrLessonNotFound  = NewDomainError("timetable", "FindLesson", ErrNotFound, "lesson not found")
	ErrInvalidDates    = NewDomainError("timetable", "Validate", ErrInvalidRange, "end must not be before start")
	ErrEmptyPeriodName = NewDomainError("timetable", "Validate", ErrEmptyValue, "period name is required")
)

// Homework domain errors
var (
	ErrHomeworkNotFound = NewDomainError("homework", "Find", ErrNotFound, "homework not found")
	ErrHomeworkExists   = NewDomainError("homework", "Create", ErrAlreadyExists, "homework already exists")
	ErrTemplateNotFound = NewDomainError("homework", "FindTemplate", ErrNotFound, "homework template not found")
	ErrEmptyTitle       = NewDomainError("homework", "Validate", ErrEmptyValue, "homework title is required")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrInvalidRange)
}

// IsIntegrity checks if the error reports inconsistent stored data.
func IsIntegrity(err error) bool {
	return errors.Is(err, ErrIntegrity)
}

// IsFatal reports whether the error means the deployment cannot serve
// requests at all.
func IsFatal(err error) bool {
	return errors.Is(err, ErrMisconfigured)
}
