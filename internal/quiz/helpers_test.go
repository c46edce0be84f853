package quiz_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

var dbSeq atomic.Int64

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:quiz-test-%d?mode=memory&cache=shared", dbSeq.Add(1))
	dbh, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return dbh
}

/* ---------------- fakes ---------------- */

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []quiz.AuditEvent
}

func (r *recordingAuditor) Record(_ context.Context, e quiz.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAuditor) Events() []quiz.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]quiz.AuditEvent(nil), r.events...)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []quiz.PassNotice
	err     error
}

func (r *recordingNotifier) AttemptPassed(_ context.Context, n quiz.PassNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return r.err
}

func (r *recordingNotifier) Notices() []quiz.PassNotice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]quiz.PassNotice(nil), r.notices...)
}

// hookedRepo passes everything through to the store, running a one-shot
// hook right before a guarded write reaches it.
type hookedRepo struct {
	quiz.Repository

	mu           sync.Mutex
	beforeFinish func()
	beforeSave   func()
}

func (r *hookedRepo) OnFinish(fn func()) { r.mu.Lock(); r.beforeFinish = fn; r.mu.Unlock() }
func (r *hookedRepo) OnSave(fn func())   { r.mu.Lock(); r.beforeSave = fn; r.mu.Unlock() }

func (r *hookedRepo) take(h *func()) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn := *h
	*h = nil
	return fn
}

func (r *hookedRepo) FinishAttempt(ctx context.Context, id string, f quiz.Finish) (bool, error) {
	if fn := r.take(&r.beforeFinish); fn != nil {
		fn()
	}
	return r.Repository.FinishAttempt(ctx, id, f)
}

func (r *hookedRepo) SaveResponses(ctx context.Context, id string, version int, responses map[string]json.RawMessage, elapsedSeconds int) (bool, error) {
	if fn := r.take(&r.beforeSave); fn != nil {
		fn()
	}
	return r.Repository.SaveResponses(ctx, id, version, responses, elapsedSeconds)
}

type mapDirectory map[string]string

func (m mapDirectory) DisplayName(_ context.Context, id string) (string, error) {
	if n, ok := m[id]; ok {
		return n, nil
	}
	return "", errors.New("unknown user")
}

/* ---------------- fixtures ---------------- */

type env struct {
	store    *quiz.SQLStore
	repo     *hookedRepo
	svc      *quiz.Service
	clock    *fakeClock
	auditor  *recordingAuditor
	notifier *recordingNotifier
}

func newEnv(t *testing.T, banks ...quiz.Bank) *env {
	t.Helper()
	dbh := openTestDB(t)
	store := quiz.NewSQLStore(dbh, "sqlite")
	for _, b := range banks {
		if err := store.PutBank(context.Background(), b); err != nil {
			t.Fatalf("put bank %s: %v", b.ID, err)
		}
	}
	e := &env{
		store:    store,
		repo:     &hookedRepo{Repository: store},
		clock:    newClock(),
		auditor:  &recordingAuditor{},
		notifier: &recordingNotifier{},
	}
	e.svc = quiz.NewService(store, e.repo,
		quiz.WithClock(e.clock.Now),
		quiz.WithAuditor(e.auditor),
		quiz.WithNotifier(e.notifier),
		quiz.WithUserDirectory(mapDirectory{"alice": "Alice Liddell"}),
		quiz.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	t.Cleanup(e.svc.Drain)
	return e
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func choices(ids ...string) json.RawMessage {
	cs := make([]quiz.Choice, len(ids))
	for i, id := range ids {
		cs[i] = quiz.Choice{ID: id, Label: "Option " + id}
	}
	b, _ := json.Marshal(cs)
	return b
}

// sampleBank has one question of every type. All-correct answers are in
// correctAnswers.
func sampleBank(id string) quiz.Bank {
	return quiz.Bank{
		ID:                  id,
		Title:               "Cardiology basics",
		Status:              quiz.BankOpen,
		PassingScorePercent: 50,
		FeedbackTiming:      quiz.FeedbackEnd,
		Questions: []quiz.Question{
			{ID: "q1", Type: "MC_SINGLE", Prompt: "Pick b", Options: choices("a", "b", "c"), CorrectAnswer: raw(`"b"`), Feedback: "b is right"},
			{ID: "q2", Type: "MC_MULTI", Prompt: "Pick a and b", Options: choices("a", "b", "c", "d"), CorrectAnswer: raw(`["a","b"]`)},
			{ID: "q3", Type: "TRUE_FALSE", Prompt: "The heart has four chambers", CorrectAnswer: raw(`true`)},
			{ID: "q4", Type: "DRAG_ORDER", Prompt: "Order the flow", Options: choices("ra", "rv", "la", "lv"), CorrectAnswer: raw(`["ra","rv","la","lv"]`)},
			{ID: "q5", Type: "IMAGE_MAP", Prompt: "Click the aorta",
				Options:       raw(`{"imageUrl":"/img/heart.png","regions":[{"id":"aorta","shape":"circle","cx":100,"cy":100,"r":10}]}`),
				CorrectAnswer: raw(`"aorta"`)},
			{ID: "q6", Type: "SLIDER", Prompt: "Resting heart rate", Options: raw(`{"min":0,"max":200,"step":1}`), CorrectAnswer: raw(`{"value":70,"tolerance":10}`)},
		},
	}
}

var correctAnswers = map[string]json.RawMessage{
	"q1": raw(`"b"`),
	"q2": raw(`["a","b"]`),
	"q3": raw(`true`),
	"q4": raw(`["ra","rv","la","lv"]`),
	"q5": raw(`{"x":103,"y":98}`),
	"q6": raw(`75`),
}
