package model

import "errors"

// ErrValidation matches every *ValidationError through errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError describes the first invalid field of a request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
