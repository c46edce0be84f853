package quiz

import (
	"context"
	"encoding/json"
	"time"
)

// BankReader fetches bank configuration and questions, answer keys included.
// A missing bank is reported as ErrNotFound.
type BankReader interface {
	GetBank(ctx context.Context, id string) (Bank, error)
}

// BankWriter replaces a bank and its questions. Only seeding writes banks.
type BankWriter interface {
	PutBank(ctx context.Context, b Bank) error
}

// AttemptTx is the set of attempt operations available inside the start
// transaction. Repository exposes the same operations outside of one.
type AttemptTx interface {
	CountFinishedAttempts(ctx context.Context, userID, bankID string) (int, error)
	FindInProgress(ctx context.Context, userID, bankID string) (Attempt, bool, error)
	InsertAttempt(ctx context.Context, a Attempt) error

	// FinishAttempt applies a terminal transition only if the attempt is still
	// IN_PROGRESS at f.Version. Stored responses are left as they are. It
	// reports false when another caller got there first.
	FinishAttempt(ctx context.Context, id string, f Finish) (bool, error)
}

type Repository interface {
	AttemptTx

	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, int, error)

	// SaveResponses replaces the stored responses only while the attempt is
	// IN_PROGRESS at version, bumping the version. It reports whether a row
	// was written.
	SaveResponses(ctx context.Context, id string, version int, responses map[string]json.RawMessage, elapsedSeconds int) (bool, error)

	// WithSerializable runs fn in a serializable transaction. A concurrent
	// start that collides with fn is reported as ErrAttemptInProgress.
	WithSerializable(ctx context.Context, fn func(tx AttemptTx) error) error
}

// PassNotice is sent when a submitted attempt passes.
type PassNotice struct {
	AttemptID   string  `json:"attempt_id"`
	BankID      string  `json:"bank_id"`
	BankTitle   string  `json:"bank_title"`
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
	MaxScore    int     `json:"max_score"`
	Percentage  float64 `json:"percentage"`
}

type Notifier interface {
	AttemptPassed(ctx context.Context, n PassNotice) error
}

const (
	EventAttemptSubmitted = "AttemptSubmitted"
	EventAttemptTimedOut  = "AttemptTimedOut"
)

type AuditEvent struct {
	Type      string    `json:"type"`
	AttemptID string    `json:"attempt_id"`
	BankID    string    `json:"bank_id"`
	UserID    string    `json:"user_id"`
	Status    Status    `json:"status"`
	Score     float64   `json:"score"`
	MaxScore  int       `json:"max_score"`
	Passed    bool      `json:"passed"`
	At        time.Time `json:"at"`
}

type Auditor interface {
	Record(ctx context.Context, e AuditEvent) error
}

type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

type nopNotifier struct{}

func (nopNotifier) AttemptPassed(context.Context, PassNotice) error { return nil }

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, AuditEvent) error { return nil }

type idDirectory struct{}

func (idDirectory) DisplayName(_ context.Context, userID string) (string, error) { return userID, nil }
