package quiz

import (
	"encoding/json"
	"time"
)

type BankStatus string

const (
	BankDraft    BankStatus = "DRAFT"
	BankOpen     BankStatus = "OPEN"
	BankPublic   BankStatus = "PUBLIC"
	BankArchived BankStatus = "ARCHIVED"
)

// Attemptable reports whether learners may start attempts on the bank.
func (s BankStatus) Attemptable() bool { return s == BankOpen || s == BankPublic }

type FeedbackTiming string

const (
	FeedbackNone      FeedbackTiming = "NONE"
	FeedbackImmediate FeedbackTiming = "IMMEDIATE"
	FeedbackEnd       FeedbackTiming = "END"
)

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusTimedOut   Status = "TIMED_OUT"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusTimedOut }

type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

type Question struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"` // MC_SINGLE, MC_MULTI, TRUE_FALSE, DRAG_ORDER, IMAGE_MAP, SLIDER
	Prompt        string          `json:"prompt"`
	MediaURL      string          `json:"media_url,omitempty"`
	Options       json.RawMessage `json:"options,omitempty"`
	CorrectAnswer json.RawMessage `json:"correct_answer,omitempty"`
	Feedback      string          `json:"feedback,omitempty"`
}

type Bank struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	Status              BankStatus     `json:"status"`
	TimeLimitMinutes    int            `json:"time_limit_minutes"`
	RandomQuestions     bool           `json:"random_questions"`
	RandomAnswers       bool           `json:"random_answers"`
	PassingScorePercent float64        `json:"passing_score_percent"`
	FeedbackTiming      FeedbackTiming `json:"feedback_timing"`
	QuestionCount       int            `json:"question_count"`
	MaxAttempts         int            `json:"max_attempts"`
	Questions           []Question     `json:"questions"`
}

type Attempt struct {
	ID            string                     `json:"id"`
	UserID        string                     `json:"user_id"`
	BankID        string                     `json:"bank_id"`
	Status        Status                     `json:"status"`
	QuestionOrder []string                   `json:"question_order"`
	OptionOrder   map[string][]string        `json:"-"` // presentation state, replayed on every read
	Responses     map[string]json.RawMessage `json:"responses"`

	Score            float64    `json:"score"`
	MaxScore         int        `json:"max_score"`
	Percentage       float64    `json:"percentage"`
	Passed           bool       `json:"passed"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	TimeSpentSeconds int        `json:"time_spent_seconds"`

	// client-reported progress hint from SaveProgress
	LastElapsedSeconds int `json:"last_elapsed_seconds"`

	// bumped by every stored save; guards writes made from a snapshot
	Version int `json:"-"`
}

// Finish carries the write-once fields of a terminal transition. Version is
// the snapshot version the score was computed from; the transition applies
// only if no save has landed since.
type Finish struct {
	Version          int
	Status           Status
	Score            float64
	MaxScore         int
	Percentage       float64
	Passed           bool
	CompletedAt      time.Time
	TimeSpentSeconds int
}

func (a Attempt) withFinish(f Finish) Attempt {
	a.Status = f.Status
	a.Score = f.Score
	a.MaxScore = f.MaxScore
	a.Percentage = f.Percentage
	a.Passed = f.Passed
	at := f.CompletedAt
	a.CompletedAt = &at
	a.TimeSpentSeconds = f.TimeSpentSeconds
	return a
}

// LearnerQuestion is a question as shown while taking an attempt: no answer
// key, no feedback, options in the attempt's persisted order.
type LearnerQuestion struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Prompt   string          `json:"prompt"`
	MediaURL string          `json:"media_url,omitempty"`
	Options  json.RawMessage `json:"options,omitempty"`
}

// QuestionResult is per-question scoring detail.
type QuestionResult struct {
	QuestionID    string          `json:"question_id"`
	Type          string          `json:"type"`
	Answered      bool            `json:"answered"`
	Response      json.RawMessage `json:"response,omitempty"`
	Score         float64         `json:"score"`
	Correct       bool            `json:"correct"`
	CorrectAnswer json.RawMessage `json:"correct_answer,omitempty"`
	Feedback      string          `json:"feedback,omitempty"`
}

type AttemptState struct {
	Attempt          Attempt           `json:"attempt"`
	Questions        []LearnerQuestion `json:"questions"`
	RemainingSeconds *int              `json:"remaining_seconds,omitempty"`
}

type SaveResult struct {
	Saved     bool                       `json:"saved"`
	Responses map[string]json.RawMessage `json:"responses"`
	Feedback  []QuestionResult           `json:"feedback,omitempty"`
}

type AttemptResult struct {
	Attempt   Attempt          `json:"attempt"`
	Questions []QuestionResult `json:"questions,omitempty"`
}

type AttemptSummary struct {
	ID          string     `json:"id"`
	BankID      string     `json:"bank_id"`
	Status      Status     `json:"status"`
	Score       float64    `json:"score"`
	MaxScore    int        `json:"max_score"`
	Percentage  float64    `json:"percentage"`
	Passed      bool       `json:"passed"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type AttemptPage struct {
	Items    []AttemptSummary `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

type AttemptListOpts struct {
	UserID string
	BankID string // optional
	Limit  int
	Offset int
}
