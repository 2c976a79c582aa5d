package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionState enumerates the states of a student's attempt.
type SessionState string

const (
	SessionStateNotStarted SessionState = "NOT_STARTED"
	SessionStateInProgress SessionState = "IN_PROGRESS"
	SessionStateFinished   SessionState = "FINISHED"
)

// ExamSession represents one student's single attempt at one exam.
// At most one row exists per (student, exam).
type ExamSession struct {
	ID         uuid.UUID    `json:"id"`
	ExamID     uuid.UUID    `json:"exam_id"`
	StudentID  int          `json:"student_id"`
	State      SessionState `json:"state"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Score      *float64     `json:"score,omitempty"`
	IsApproved bool         `json:"is_approved"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// ExamSessionFields are the columns the engine writes on upsert.
// Nil pointers leave the stored value untouched.
type ExamSessionFields struct {
	State      SessionState
	StartedAt  *time.Time
	FinishedAt *time.Time
	Score      *float64
}

// StudentResult is a session as shown to its student: the score stays hidden until approved.
type StudentResult struct {
	ExamID     uuid.UUID    `json:"exam_id"`
	ExamTitle  string       `json:"exam_title"`
	State      SessionState `json:"state"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Score      *float64     `json:"score,omitempty"`
	IsApproved bool         `json:"is_approved"`
}

// ExamResult combines student identity with their session details for staff views.
type ExamResult struct {
	StudentID  int          `json:"student_id"`
	Email      string       `json:"email"`
	Name       string       `json:"name"`
	State      SessionState `json:"state"`
	Score      *float64     `json:"score"`
	IsApproved bool         `json:"is_approved"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at"`
}
