package quiz

// Error is a domain failure with a stable machine-readable code. Callers
// compare against the sentinels below with errors.Is.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

var (
	// ErrNotFound covers missing banks and attempts as well as attempts that
	// belong to someone else.
	ErrNotFound             = &Error{Code: "NOT_FOUND", Message: "not found"}
	ErrBankNotAvailable     = &Error{Code: "BANK_NOT_AVAILABLE", Message: "this question bank is not open for attempts"}
	ErrNoQuestions          = &Error{Code: "NO_QUESTIONS", Message: "this question bank has no questions"}
	ErrMaxAttemptsReached   = &Error{Code: "MAX_ATTEMPTS_REACHED", Message: "you have used all allowed attempts for this question bank"}
	ErrAttemptInProgress    = &Error{Code: "ATTEMPT_IN_PROGRESS", Message: "you already have an attempt in progress for this question bank"}
	ErrAttemptNotInProgress = &Error{Code: "ATTEMPT_NOT_IN_PROGRESS", Message: "this attempt is no longer in progress"}
	ErrAttemptTimedOut      = &Error{Code: "ATTEMPT_TIMED_OUT", Message: "the time limit for this attempt has expired"}
	ErrAttemptCompleted     = &Error{Code: "ATTEMPT_ALREADY_COMPLETED", Message: "this attempt has already been submitted"}
	ErrAttemptNotCompleted  = &Error{Code: "ATTEMPT_NOT_COMPLETED", Message: "results are available once the attempt is submitted"}
	ErrAttemptContended     = &Error{Code: "ATTEMPT_CONTENDED", Message: "this attempt is being changed by another request, try again"}
)
