package model

import (
	"time"

	"github.com/google/uuid"
)

// StudentAnswer is the single stored answer of a student to a question.
// ChoiceID is set for multiple-choice questions, TextAnswer for essays.
type StudentAnswer struct {
	ID          uuid.UUID  `json:"id"`
	StudentID   int        `json:"student_id"`
	QuestionID  uuid.UUID  `json:"question_id"`
	ChoiceID    *uuid.UUID `json:"choice_id,omitempty"`
	TextAnswer  *string    `json:"text_answer,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// StudentAnswerFields are the columns written on upsert. Both are always
// written so that switching answer kinds clears the other column.
type StudentAnswerFields struct {
	ChoiceID   *uuid.UUID
	TextAnswer *string
}

// SubmitAnswerRequest is the HTTP payload for answering a question.
type SubmitAnswerRequest struct {
	ChoiceID   *uuid.UUID `json:"choice_id"`
	TextAnswer *string    `json:"text_answer" binding:"omitempty,max=20000"`
}
