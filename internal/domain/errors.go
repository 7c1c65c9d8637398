package domain

import "errors"

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrEmptyBatch  = errors.New("empty batch")
	ErrPersistence = errors.New("persistence error")
)
