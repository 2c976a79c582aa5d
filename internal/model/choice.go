package model

import "github.com/google/uuid"

// Choice is one selectable option of a multiple-choice question.
type Choice struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Text       string    `json:"text"`
	IsCorrect  bool      `json:"is_correct"`
}

// ChoiceForStudent hides the correctness flag.
type ChoiceForStudent struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

// AddChoiceRequest is the payload for adding a choice to a question.
type AddChoiceRequest struct {
	Text      string `json:"text" binding:"required,min=1,max=255"`
	IsCorrect bool   `json:"is_correct"`
}

// UpdateChoiceRequest is the payload for editing a choice.
type UpdateChoiceRequest struct {
	Text      string `json:"text" binding:"omitempty,min=1,max=255"`
	IsCorrect *bool  `json:"is_correct"`
}
