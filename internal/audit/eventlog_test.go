package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func TestRecordAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:audit-test?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer dbh.Close()

	log := NewEventLog(dbh, "")
	log.now = func() time.Time { return time.Unix(1700000000, 0) }

	events := []quiz.AuditEvent{
		{Type: quiz.EventAttemptTimedOut, AttemptID: "a1", BankID: "b1", UserID: "u1", Status: quiz.StatusTimedOut},
		{Type: quiz.EventAttemptSubmitted, AttemptID: "a2", BankID: "b1", UserID: "u1", Status: quiz.StatusCompleted, Score: 3, MaxScore: 4, Passed: true},
	}
	for _, ev := range events {
		if err := log.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := log.Since(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries", len(got))
	}
	if got[0].Key != "a1" || got[1].Key != "a2" || got[0].Seq >= got[1].Seq {
		t.Fatalf("entries out of order: %+v", got)
	}
	if got[1].Type != quiz.EventAttemptSubmitted || got[1].SiteID != "local" || got[1].CreatedAt != 1700000000 {
		t.Fatalf("entry = %+v", got[1])
	}
	var ev quiz.AuditEvent
	if err := json.Unmarshal([]byte(got[1].DataJSON), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Score != 3 || ev.MaxScore != 4 || !ev.Passed {
		t.Fatalf("payload = %+v", ev)
	}

	rest, err := log.Since(ctx, got[0].Seq, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 1 || rest[0].Key != "a2" {
		t.Fatalf("since = %+v", rest)
	}
}
