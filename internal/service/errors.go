package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Engine errors. Handlers compare with errors.Is.
var (
	ErrAlreadyCompleted    = errors.New("exam session already completed")
	ErrOutOfWindow         = errors.New("exam is outside its scheduling window")
	ErrNoQuestions         = errors.New("exam has no questions")
	ErrNotFound            = errors.New("not found")
	ErrInvalidChoice       = errors.New("choice does not belong to question")
	ErrInvalidQuestionType = errors.New("answer payload does not match question type")
	ErrStorageUnavailable  = errors.New("storage unavailable")
)

// Catalog validation errors.
var (
	ErrInvalidWindow   = errors.New("end_time must be after start_time")
	ErrUnknownQuestion = errors.New("unknown question type")
	ErrNotMultiChoice  = errors.New("choices can only be added to multiple-choice questions")
)

// StorageError wraps a failure of the persistence or catalog layer.
// It matches ErrStorageUnavailable and unwraps to the driver error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStorageUnavailable, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}

// storeErr classifies an error returned by a store. Missing rows become
// ErrNotFound, everything else is a StorageError.
func storeErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &StorageError{Op: op, Err: err}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
