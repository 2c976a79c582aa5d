package websocket

import (
	"github.com/google/uuid"
	"github.com/stemsi/exam-session-engine/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer    Action = "answer"
	ActionRemaining Action = "remaining"
	ActionFinish    Action = "finish"
	ActionPing      Action = "ping"
)

// Request is any client message. Only the fields the action needs are read.
type Request struct {
	Action     Action     `json:"action"`
	QuestionID string     `json:"question_id,omitempty"`
	ChoiceID   *uuid.UUID `json:"choice_id,omitempty"`
	TextAnswer *string    `json:"text_answer,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventAnswered  Event = "answered"
	EventRemaining Event = "remaining"
	EventFinished  Event = "finished"
	EventPong      Event = "pong"
)

type AnsweredResponse struct {
	Event     Event                     `json:"event"`
	Answer    *model.StudentAnswer      `json:"answer"`
	Next      *model.QuestionForStudent `json:"next"`
	Exhausted bool                      `json:"exhausted"`
}

type RemainingResponse struct {
	Event            Event   `json:"event"`
	RemainingSeconds float64 `json:"remaining_seconds"`
}

type FinishedResponse struct {
	Event   Event              `json:"event"`
	Session *model.ExamSession `json:"session"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
