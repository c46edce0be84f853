package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

type Clock func() time.Time

// Service owns the attempt lifecycle: IN_PROGRESS -> COMPLETED | TIMED_OUT.
//
// It keeps no state between calls. The store is the only synchronization
// point: starts run in a serializable transaction and every terminal
// transition is a conditional update on status = IN_PROGRESS, so whichever
// caller lands first wins and the others observe zero affected rows. Saves
// and terminal updates are also guarded on the version they were computed
// from; a save landing in between forces a reload instead of being lost.
//
// Time limits are enforced lazily. There is no sweeper; an expired attempt is
// moved to TIMED_OUT the next time it is read, saved, submitted, or its owner
// starts another attempt on the same bank.
type Service struct {
	banks    BankReader
	repo     Repository
	selector *Selector
	grader   grading.Grader
	notifier Notifier
	auditor  Auditor
	users    UserDirectory
	log      *slog.Logger
	now      Clock

	sideEffectTimeout time.Duration
	pending           sync.WaitGroup
}

type Option func(*Service)

func WithNotifier(n Notifier) Option           { return func(s *Service) { s.notifier = n } }
func WithAuditor(a Auditor) Option             { return func(s *Service) { s.auditor = a } }
func WithUserDirectory(d UserDirectory) Option { return func(s *Service) { s.users = d } }
func WithLogger(l *slog.Logger) Option         { return func(s *Service) { s.log = l } }
func WithClock(c Clock) Option                 { return func(s *Service) { s.now = c } }
func WithGrader(g grading.Grader) Option       { return func(s *Service) { s.grader = g } }
func WithSelector(sel *Selector) Option        { return func(s *Service) { s.selector = sel } }

func NewService(banks BankReader, repo Repository, opts ...Option) *Service {
	s := &Service{
		banks:             banks,
		repo:              repo,
		selector:          NewSelector(),
		grader:            grading.NewDefaultGrader(),
		notifier:          nopNotifier{},
		auditor:           nopAuditor{},
		users:             idDirectory{},
		log:               slog.Default(),
		now:               time.Now,
		sideEffectTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Drain waits for in-flight notifications and audit records.
func (s *Service) Drain() { s.pending.Wait() }

// StartAttempt creates a new attempt for userID on bankID.
//
// A stale IN_PROGRESS attempt on the same bank is timed out first. If that
// timeout uses up the last allowed attempt, it is kept and StartAttempt
// returns ErrMaxAttemptsReached without creating a new one.
func (s *Service) StartAttempt(ctx context.Context, bankID, userID string) (AttemptState, error) {
	b, err := s.banks.GetBank(ctx, bankID)
	if err != nil {
		return AttemptState{}, err
	}
	if !b.Status.Attemptable() {
		return AttemptState{}, ErrBankNotAvailable
	}
	sel, err := s.selector.Select(b)
	if err != nil {
		return AttemptState{}, err
	}

	a := Attempt{
		ID:            uuid.NewString(),
		UserID:        userID,
		BankID:        b.ID,
		Status:        StatusInProgress,
		QuestionOrder: sel.QuestionOrder,
		OptionOrder:   sel.OptionOrder,
		Responses:     map[string]json.RawMessage{},
		StartedAt:     ceilMillis(s.now().UTC()),
	}

	var expired []Attempt
	capped := false
	err = s.repo.WithSerializable(ctx, func(tx AttemptTx) error {
		expired, capped = nil, false
		finished := 0
		if b.MaxAttempts > 0 {
			n, err := tx.CountFinishedAttempts(ctx, userID, b.ID)
			if err != nil {
				return err
			}
			if n >= b.MaxAttempts {
				return ErrMaxAttemptsReached
			}
			finished = n
		}

		cur, found, err := tx.FindInProgress(ctx, userID, b.ID)
		if err != nil {
			return err
		}
		if found {
			if !IsTimedOut(cur.StartedAt, b.TimeLimitMinutes, s.now()) {
				return ErrAttemptInProgress
			}
			done, ok, err := s.finishTimedOut(ctx, tx, b, cur)
			if err != nil {
				return err
			}
			if !ok {
				return ErrAttemptInProgress
			}
			expired = append(expired, done)
			finished++
			if b.MaxAttempts > 0 && finished >= b.MaxAttempts {
				// keep the timeout, create nothing
				capped = true
				return nil
			}
		}
		return tx.InsertAttempt(ctx, a)
	})
	if err != nil {
		return AttemptState{}, err
	}
	for _, e := range expired {
		s.log.Info("attempt timed out", "attempt_id", e.ID, "bank_id", b.ID, "trigger", "start")
		s.dispatch(b, e, false)
	}
	if capped {
		return AttemptState{}, ErrMaxAttemptsReached
	}

	s.log.Info("attempt started", "attempt_id", a.ID, "bank_id", b.ID, "user_id", userID, "questions", len(a.QuestionOrder))
	return s.state(b, a), nil
}

// GetAttemptState returns the attempt with its questions in their persisted
// presentation order.
func (s *Service) GetAttemptState(ctx context.Context, attemptID, userID string) (AttemptState, error) {
	a, err := s.loadOwned(ctx, attemptID, userID)
	if err != nil {
		return AttemptState{}, err
	}
	b, err := s.banks.GetBank(ctx, a.BankID)
	if err != nil {
		return AttemptState{}, err
	}
	if a.Status == StatusInProgress && IsTimedOut(a.StartedAt, b.TimeLimitMinutes, s.now()) {
		if a, err = s.expire(ctx, b, a); err != nil {
			return AttemptState{}, err
		}
	}
	return s.state(b, a), nil
}

// SaveProgress merges partial answers into the attempt. Answers for questions
// outside the attempt are dropped. A save that loses a race with a terminal
// transition writes nothing and reports Saved=false.
func (s *Service) SaveProgress(ctx context.Context, attemptID, userID string, partial map[string]json.RawMessage, elapsedSeconds int) (SaveResult, error) {
	a, err := s.loadOwned(ctx, attemptID, userID)
	if err != nil {
		return SaveResult{}, err
	}
	if a.Status != StatusInProgress {
		return SaveResult{}, ErrAttemptNotInProgress
	}
	b, err := s.banks.GetBank(ctx, a.BankID)
	if err != nil {
		return SaveResult{}, err
	}
	if IsTimedOut(a.StartedAt, b.TimeLimitMinutes, s.now()) {
		if _, err := s.expire(ctx, b, a); err != nil {
			return SaveResult{}, err
		}
		return SaveResult{}, ErrAttemptTimedOut
	}

	incoming := filterResponses(a.QuestionOrder, partial)
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}

	// The write only lands on the version it was merged from. A miss means
	// another save got in first: merge again over what is stored now.
	var merged map[string]json.RawMessage
	for try := 0; ; try++ {
		merged = mergeResponses(a.Responses, incoming)
		ok, err := s.repo.SaveResponses(ctx, a.ID, a.Version, merged, elapsedSeconds)
		if err != nil {
			return SaveResult{}, err
		}
		if ok {
			break
		}
		if try == maxSnapshotRetries {
			return SaveResult{}, ErrAttemptContended
		}
		if a, err = s.repo.GetAttempt(ctx, a.ID); err != nil {
			return SaveResult{}, err
		}
		if a.Status != StatusInProgress {
			s.log.Info("save skipped, attempt already finished", "attempt_id", a.ID)
			return SaveResult{Saved: false, Responses: a.Responses}, nil
		}
	}

	res := SaveResult{Saved: true, Responses: merged}
	if b.FeedbackTiming == FeedbackImmediate && len(incoming) > 0 {
		ids := make([]string, 0, len(incoming))
		for _, id := range a.QuestionOrder {
			if _, ok := incoming[id]; ok {
				ids = append(ids, id)
			}
		}
		_, res.Feedback = s.scoreQuestions(b, ids, incoming)
	}
	return res, nil
}

// SubmitAttempt scores the attempt once. Losing a race with another submit or
// an auto-timeout yields ErrAttemptCompleted instead of a second scoring.
func (s *Service) SubmitAttempt(ctx context.Context, attemptID, userID string) (AttemptResult, error) {
	a, err := s.loadOwned(ctx, attemptID, userID)
	if err != nil {
		return AttemptResult{}, err
	}
	if a.Status.Terminal() {
		return AttemptResult{}, ErrAttemptCompleted
	}
	b, err := s.banks.GetBank(ctx, a.BankID)
	if err != nil {
		return AttemptResult{}, err
	}

	now := s.now()
	status := StatusCompleted
	if IsTimedOut(a.StartedAt, b.TimeLimitMinutes, now) {
		status = StatusTimedOut
	}
	for try := 0; ; try++ {
		f, results := s.finishFor(b, a, status, now)
		ok, err := s.repo.FinishAttempt(ctx, a.ID, f)
		if err != nil {
			return AttemptResult{}, err
		}
		if ok {
			done := a.withFinish(f)
			s.log.Info("attempt submitted", "attempt_id", done.ID, "status", done.Status,
				"score", done.Score, "max_score", done.MaxScore, "passed", done.Passed)
			s.dispatch(b, done, true)
			return AttemptResult{Attempt: done, Questions: withFeedback(b.FeedbackTiming, results)}, nil
		}
		if try == maxSnapshotRetries {
			return AttemptResult{}, ErrAttemptContended
		}
		// a save landed after the load; score what is stored now
		if a, err = s.repo.GetAttempt(ctx, a.ID); err != nil {
			return AttemptResult{}, err
		}
		if a.Status.Terminal() {
			return AttemptResult{}, ErrAttemptCompleted
		}
	}
}

// GetResults returns stored totals with per-question detail recomputed from
// the stored responses.
func (s *Service) GetResults(ctx context.Context, attemptID, userID string) (AttemptResult, error) {
	a, err := s.loadOwned(ctx, attemptID, userID)
	if err != nil {
		return AttemptResult{}, err
	}
	b, err := s.banks.GetBank(ctx, a.BankID)
	if err != nil {
		return AttemptResult{}, err
	}
	if a.Status == StatusInProgress && IsTimedOut(a.StartedAt, b.TimeLimitMinutes, s.now()) {
		if a, err = s.expire(ctx, b, a); err != nil {
			return AttemptResult{}, err
		}
	}
	if !a.Status.Terminal() {
		return AttemptResult{}, ErrAttemptNotCompleted
	}
	_, results := s.scoreQuestions(b, a.QuestionOrder, a.Responses)
	return AttemptResult{Attempt: a, Questions: withFeedback(b.FeedbackTiming, results)}, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListUserAttempts pages through a learner's attempts, newest first. bankID
// is optional.
func (s *Service) ListUserAttempts(ctx context.Context, userID, bankID string, page, pageSize int) (AttemptPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	list, total, err := s.repo.ListAttempts(ctx, AttemptListOpts{
		UserID: userID,
		BankID: bankID,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return AttemptPage{}, err
	}
	items := make([]AttemptSummary, 0, len(list))
	for _, a := range list {
		items = append(items, AttemptSummary{
			ID:          a.ID,
			BankID:      a.BankID,
			Status:      a.Status,
			Score:       a.Score,
			MaxScore:    a.MaxScore,
			Percentage:  a.Percentage,
			Passed:      a.Passed,
			StartedAt:   a.StartedAt,
			CompletedAt: a.CompletedAt,
		})
	}
	return AttemptPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// ---- internals ----

// maxSnapshotRetries bounds how often a write is recomputed after a
// concurrent save moved the attempt's version.
const maxSnapshotRetries = 16

func (s *Service) loadOwned(ctx context.Context, attemptID, userID string) (Attempt, error) {
	a, err := s.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.UserID != userID {
		return Attempt{}, ErrNotFound
	}
	return a, nil
}

func (s *Service) state(b Bank, a Attempt) AttemptState {
	st := AttemptState{Attempt: a, Questions: learnerQuestions(b, a, s.log)}
	if a.Status == StatusInProgress {
		st.RemainingSeconds = Remaining(a.StartedAt, b.TimeLimitMinutes, s.now())
	}
	return st
}

// finishFor scores the snapshot a into a terminal transition guarded on
// a's version.
func (s *Service) finishFor(b Bank, a Attempt, status Status, now time.Time) (Finish, []QuestionResult) {
	scores, results := s.scoreQuestions(b, a.QuestionOrder, a.Responses)
	sum := grading.Aggregate(scores, b.PassingScorePercent)
	return Finish{
		Version:          a.Version,
		Status:           status,
		Score:            sum.Score,
		MaxScore:         sum.MaxScore,
		Percentage:       sum.Percentage,
		Passed:           sum.Passed,
		CompletedAt:      now.UTC().Truncate(time.Millisecond),
		TimeSpentSeconds: timeSpent(a.StartedAt, now, b.TimeLimitMinutes, status == StatusTimedOut),
	}, results
}

// finishTimedOut scores a with whatever responses exist and moves it to
// TIMED_OUT. ok is false when the attempt left IN_PROGRESS or took a save
// since a was read.
func (s *Service) finishTimedOut(ctx context.Context, tx AttemptTx, b Bank, a Attempt) (Attempt, bool, error) {
	f, _ := s.finishFor(b, a, StatusTimedOut, s.now())
	ok, err := tx.FinishAttempt(ctx, a.ID, f)
	if err != nil {
		return Attempt{}, false, err
	}
	return a.withFinish(f), ok, nil
}

// expire performs the lazy timeout outside of a transaction. When another
// caller finished the attempt first, the stored terminal state is returned.
func (s *Service) expire(ctx context.Context, b Bank, a Attempt) (Attempt, error) {
	for try := 0; ; try++ {
		done, ok, err := s.finishTimedOut(ctx, s.repo, b, a)
		if err != nil {
			return Attempt{}, err
		}
		if ok {
			s.log.Info("attempt timed out", "attempt_id", done.ID, "bank_id", b.ID, "trigger", "access")
			s.dispatch(b, done, false)
			return done, nil
		}
		if try == maxSnapshotRetries {
			return Attempt{}, ErrAttemptContended
		}
		if a, err = s.repo.GetAttempt(ctx, a.ID); err != nil {
			return Attempt{}, err
		}
		if a.Status.Terminal() {
			return a, nil
		}
	}
}

func mergeResponses(stored, incoming map[string]json.RawMessage) map[string]json.RawMessage {
	merged := make(map[string]json.RawMessage, len(stored)+len(incoming))
	for k, v := range stored {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}
	return merged
}

// scoreQuestions grades the given question ids. Questions missing from the
// bank or with an unusable answer key score zero.
func (s *Service) scoreQuestions(b Bank, ids []string, responses map[string]json.RawMessage) ([]float64, []QuestionResult) {
	idx := questionIndex(b)
	scores := make([]float64, 0, len(ids))
	results := make([]QuestionResult, 0, len(ids))
	for _, id := range ids {
		resp := responses[id]
		qr := QuestionResult{QuestionID: id, Answered: answered(resp)}
		if qr.Answered {
			qr.Response = resp
		}
		q, ok := idx[id]
		if !ok {
			s.log.Warn("scoring a question no longer in the bank", "bank_id", b.ID, "question_id", id)
			scores = append(scores, 0)
			results = append(results, qr)
			continue
		}
		qr.Type = q.Type
		qr.CorrectAnswer = q.CorrectAnswer
		qr.Feedback = q.Feedback

		r, err := s.grader.Grade(grading.Q{Type: q.Type, Options: q.Options, CorrectAnswer: q.CorrectAnswer}, resp)
		if err != nil {
			s.log.Warn("grading failed", "bank_id", b.ID, "question_id", id, "error", err)
		}
		qr.Score, qr.Correct = r.Score, r.Correct
		scores = append(scores, r.Score)
		results = append(results, qr)
	}
	return scores, results
}

func answered(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

// dispatch records the audit event and, for passed submissions, notifies.
// Both run in the background; failures are logged and never surface.
func (s *Service) dispatch(b Bank, a Attempt, submitted bool) {
	ev := AuditEvent{
		Type:      EventAttemptTimedOut,
		AttemptID: a.ID,
		BankID:    a.BankID,
		UserID:    a.UserID,
		Status:    a.Status,
		Score:     a.Score,
		MaxScore:  a.MaxScore,
		Passed:    a.Passed,
		At:        s.now().UTC(),
	}
	if submitted {
		ev.Type = EventAttemptSubmitted
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.sideEffectTimeout)
		defer cancel()

		if err := s.auditor.Record(ctx, ev); err != nil {
			s.log.Error("audit record failed", "attempt_id", a.ID, "error", err)
		}
		if !submitted || !a.Passed {
			return
		}
		name, err := s.users.DisplayName(ctx, a.UserID)
		if err != nil || name == "" {
			if err != nil {
				s.log.Warn("display name lookup failed", "user_id", a.UserID, "error", err)
			}
			name = a.UserID
		}
		err = s.notifier.AttemptPassed(ctx, PassNotice{
			AttemptID:   a.ID,
			BankID:      b.ID,
			BankTitle:   b.Title,
			UserID:      a.UserID,
			DisplayName: name,
			Score:       a.Score,
			MaxScore:    a.MaxScore,
			Percentage:  a.Percentage,
		})
		if err != nil {
			s.log.Error("pass notification failed", "attempt_id", a.ID, "error", err)
		}
	}()
}
