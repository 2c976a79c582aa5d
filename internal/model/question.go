package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionTypeMCQ        QuestionType = "mcq"
	QuestionTypeEssay      QuestionType = "essay"
	QuestionTypeAudioMCQ   QuestionType = "audio_mcq"
	QuestionTypeImageMCQ   QuestionType = "image_mcq"
	QuestionTypeAudioEssay QuestionType = "audio_essay"
	QuestionTypeImageEssay QuestionType = "image_essay"
)

// QuestionTypes lists every known type.
var QuestionTypes = []QuestionType{
	QuestionTypeMCQ, QuestionTypeEssay,
	QuestionTypeAudioMCQ, QuestionTypeImageMCQ,
	QuestionTypeAudioEssay, QuestionTypeImageEssay,
}

// IsMultipleChoice reports whether answers to this type reference a Choice.
func (t QuestionType) IsMultipleChoice() bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeAudioMCQ, QuestionTypeImageMCQ:
		return true
	}
	return false
}

// IsEssay reports whether answers to this type are free text.
func (t QuestionType) IsEssay() bool {
	switch t {
	case QuestionTypeEssay, QuestionTypeAudioEssay, QuestionTypeImageEssay:
		return true
	}
	return false
}

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	return t.IsMultipleChoice() || t.IsEssay()
}

// QuestionOrder selects the sort applied when listing an exam's questions.
type QuestionOrder int

const (
	// OrderByPosition sorts by order_num, ties broken by id. Presentation order.
	OrderByPosition QuestionOrder = iota
	// OrderByID sorts by id only.
	OrderByID
)

// Question represents a single exam question.
type Question struct {
	ID        uuid.UUID    `json:"id"`
	ExamID    uuid.UUID    `json:"exam_id"`
	Text      string       `json:"text"`
	Type      QuestionType `json:"question_type"`
	Points    int          `json:"points"`
	OrderNum  int          `json:"order_num"`
	AudioURL  string       `json:"audio_url,omitempty"`
	ImageURL  string       `json:"image_url,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Before reports whether q is presented before o: order key first, id breaks ties.
func (q *Question) Before(o *Question) bool {
	if q.OrderNum != o.OrderNum {
		return q.OrderNum < o.OrderNum
	}
	return q.ID.String() < o.ID.String()
}

// QuestionForStudent is a question with its choices but without correctness flags.
type QuestionForStudent struct {
	ID       uuid.UUID          `json:"id"`
	Text     string             `json:"text"`
	Type     QuestionType       `json:"question_type"`
	Points   int                `json:"points"`
	OrderNum int                `json:"order_num"`
	AudioURL string             `json:"audio_url,omitempty"`
	ImageURL string             `json:"image_url,omitempty"`
	Choices  []ChoiceForStudent `json:"choices,omitempty"`
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	Text     string `json:"text" binding:"required,min=1,max=5000"`
	Type     string `json:"question_type" binding:"required,question_type"`
	Points   int    `json:"points" binding:"min=0,max=1000"`
	OrderNum int    `json:"order_num" binding:"min=0"`
	AudioURL string `json:"audio_url" binding:"omitempty,url"`
	ImageURL string `json:"image_url" binding:"omitempty,url"`
}

// UpdateQuestionRequest is the payload for editing a question.
type UpdateQuestionRequest struct {
	Text     string  `json:"text" binding:"omitempty,min=1,max=5000"`
	Type     string  `json:"question_type" binding:"omitempty,question_type"`
	Points   *int    `json:"points" binding:"omitempty,min=0,max=1000"`
	OrderNum *int    `json:"order_num" binding:"omitempty,min=0"`
	AudioURL *string `json:"audio_url" binding:"omitempty"`
	ImageURL *string `json:"image_url" binding:"omitempty"`
}
