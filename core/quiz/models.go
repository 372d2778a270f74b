package quiz

import (
	"errors"
	"time"
)

// Question kinds
const (
	KindMCQ   = "mcq"
	KindShort = "short"
)

// Attempt statuses
const (
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
)

var (
	ErrNotFound        = errors.New("quiz not found")
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptSubmitted guards the attempt lifecycle: a submitted attempt
	// can be neither autosaved nor re-submitted.
	ErrAttemptSubmitted = errors.New("attempt has already been submitted")
)

type Question struct {
	ID       string   `json:"id"`
	QuizID   string   `json:"-"`
	Position int      `json:"position"`
	Kind     string   `json:"kind"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options,omitempty"` // mcq only
	// Answer is the single correct option for mcq; optional reference
	// answer for short. nil means grade with AI assistance.
	Answer *string `json:"-"`
}

type Quiz struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"-"`
	ClassID   string     `json:"class_id"`
	NoteID    *string    `json:"note_id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions,omitempty"`
	CreatedAt time.Time  `json:"created_at"` // UTC
	UpdatedAt time.Time  `json:"updated_at"` // UTC
}

type Attempt struct {
	ID          string             `json:"id"`
	QuizID      string             `json:"quiz_id"`
	OwnerID     string             `json:"-"`
	Status      string             `json:"status"`
	Title       string             `json:"title,omitempty"`
	Responses   map[string]string  `json:"responses"`
	Percent     int                `json:"percent"`
	Feedback    []QuestionFeedback `json:"feedback,omitempty"`
	Summary     string             `json:"summary,omitempty"`
	StartedAt   time.Time          `json:"started_at"`             // UTC
	SubmittedAt *time.Time         `json:"submitted_at,omitempty"` // UTC
}

// DraftQuestion is a question as produced by the generator, before ids and
// positions are assigned.
type DraftQuestion struct {
	Kind    string   `json:"kind" validate:"required,oneof=mcq short"`
	Prompt  string   `json:"prompt" validate:"required"`
	Options []string `json:"options,omitempty"`
	Answer  *string  `json:"answer,omitempty"`
}

type NewQuiz struct {
	ClassID   string          `json:"class_id" validate:"required"`
	NoteID    *string         `json:"note_id"`
	Title     string          `json:"title" validate:"required"`
	Questions []DraftQuestion `json:"questions" validate:"required,min=1,dive"`
}

type GenerateQuiz struct {
	ClassID string  `json:"class_id" validate:"required"`
	NoteID  string  `json:"note_id" validate:"required"`
	Title   string  `json:"title"`
	Count   int     `json:"count" validate:"min=0,max=30"`
	UserID  *string `json:"user_id"`
}

type StartAttempt struct {
	QuizID string `json:"quiz_id" validate:"required"`
}

type AutosaveAttempt struct {
	AttemptID string            `json:"attempt_id" validate:"required"`
	Responses map[string]string `json:"responses" validate:"required"`
}

type UpdateAttemptMeta struct {
	AttemptID string `json:"attempt_id" validate:"required"`
	Title     string `json:"title"`
}

type SubmitAttempt struct {
	AttemptID string            `json:"attempt_id" validate:"required"`
	Responses map[string]string `json:"responses"`
}
