package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflict is returned when a document changed between load and save.
	ErrConflict = errors.New("concurrent modification")
	// ErrDuplicateKey is returned when a generated identifier is already taken.
	ErrDuplicateKey = errors.New("duplicate key")
)

type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// ValidationErrors collects field errors of a single request.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Error())
	}
	return strings.Join(msgs, "; ")
}

// ErrOrNil returns nil for an empty list so callers can return it directly.
func (e ValidationErrors) ErrOrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// UnavailableError lists resources that are already taken, so the caller
// can retry with a different selection.
type UnavailableError struct {
	Resource string
	Items    []string
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.Resource, strings.Join(e.Items, ", "))
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var single ValidationError
	var multi ValidationErrors
	return errors.As(err, &single) || errors.As(err, &multi)
}

func IsUnavailable(err error) bool {
	var target UnavailableError
	return errors.As(err, &target)
}

// FieldErrors flattens single and multi validation errors.
func FieldErrors(err error) []ValidationError {
	var multi ValidationErrors
	if errors.As(err, &multi) {
		return multi
	}
	var single ValidationError
	if errors.As(err, &single) {
		return []ValidationError{single}
	}
	return nil
}
