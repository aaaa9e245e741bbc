package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalid is the parent of every validation failure; match it with errors.Is.
	ErrInvalid = errors.New("invalid input")
	// ErrNotFound reports a missing entry, goal, report or user.
	ErrNotFound = errors.New("not found")
	// ErrLimitReached reports that a per-user cap would be exceeded.
	ErrLimitReached = errors.New("limit reached")
	// ErrMailNotSent is returned by mail transports that only log messages.
	ErrMailNotSent = errors.New("mail transport disabled, message not sent")
)

var (
	ErrInvalidKind        = invalid("type", "must be 'income' or 'expense'")
	ErrInvalidGoalType    = invalid("type", "must be 'income' or 'expense'")
	ErrInvalidAmount      = invalid("amount", "must be positive")
	ErrAmountPrecision    = invalid("amount", "must have at most 2 decimal places")
	ErrAmountTooLarge     = invalid("amount", "must be less than 10000000000")
	ErrInvalidDate        = invalid("entry_date", "must be YYYY-MM-DD")
	ErrInvalidMonth       = invalid("month", "must be YYYY-MM or YYYY-MM-DD")
	ErrEmptyCategory      = invalid("type", "is required")
	ErrUnknownCategory    = invalid("type", "category does not exist")
	ErrCategoryTooLong    = invalid("name", "must be at most 50 characters")
	ErrDescriptionTooLong = invalid("description", "must be at most 255 characters")
	ErrNoteTooLong        = invalid("note", "must be at most 255 characters")
	ErrEmptyGoalName      = invalid("name", "is required")
	ErrGoalNameTooLong    = invalid("name", "must be at most 60 characters")
)

// ValidationError names the offending field so callers can correct input.
type ValidationError struct {
	Field  string
	Reason string
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("'%s' %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// LimitError reports which cap was hit.
type LimitError struct {
	What  string
	Limit int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("maximum %s limit (%d) reached", e.What, e.Limit)
}

func (e *LimitError) Unwrap() error {
	return ErrLimitReached
}
