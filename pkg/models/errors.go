package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecognition          = errors.New("recognition error")
	ErrExtraction           = errors.New("extraction error")
	ErrMalformedResult      = errors.New("malformed recognition result")
	ErrInputValidation      = errors.New("input validation error")
	ErrInsufficientDuration = errors.New("insufficient remaining duration")
)

// Reason is a machine-readable code attached to validation failures.
type Reason string

const (
	ReasonNoBoundaries     Reason = "no_boundaries"
	ReasonZeroDuration     Reason = "zero_duration"
	ReasonInvalidParameter Reason = "invalid_parameter"
	ReasonMissingSource    Reason = "missing_source"
)

// ValidationError reports input the pipeline cannot work with.
type ValidationError struct {
	Reason Reason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", ErrInputValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInputValidation, e.Reason, e.Detail)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInputValidation
}

// Invalid builds a ValidationError with a formatted detail.
func Invalid(reason Reason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Wrap tags err with marker so callers can classify it with errors.Is.
func Wrap(marker error, operation string, err error) error {
	operation = strings.TrimSpace(operation)
	switch {
	case err == nil && operation == "":
		return marker
	case err == nil:
		return fmt.Errorf("%w: %s", marker, operation)
	case operation == "":
		return fmt.Errorf("%w: %w", marker, err)
	}
	return fmt.Errorf("%w: %s: %w", marker, operation, err)
}

// ReasonOf extracts the validation reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Reason, true
	}
	return "", false
}
