package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mind-engage/mindengage-quiz/internal/storage"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// attemptQueries runs attempt statements against either the pool or a
// transaction.
type attemptQueries struct{ q querier }

// SQLStore implements BankReader and Repository over database/sql. Queries
// use $n placeholders, understood by both pgx and modernc sqlite.
type SQLStore struct {
	attemptQueries
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{attemptQueries: attemptQueries{q: db}, db: db, driver: driver}
}

// ---- banks ----

func (s *SQLStore) GetBank(ctx context.Context, id string) (Bank, error) {
	var b Bank
	var status, timing string
	err := s.db.QueryRowContext(ctx, `SELECT id,title,status,time_limit_minutes,random_questions,random_answers,
		passing_score_percent,feedback_timing,question_count,max_attempts FROM banks WHERE id=$1`, id).
		Scan(&b.ID, &b.Title, &status, &b.TimeLimitMinutes, &b.RandomQuestions, &b.RandomAnswers,
			&b.PassingScorePercent, &timing, &b.QuestionCount, &b.MaxAttempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Bank{}, ErrNotFound
		}
		return Bank{}, fmt.Errorf("get bank: %w", err)
	}
	b.Status = BankStatus(status)
	b.FeedbackTiming = FeedbackTiming(timing)

	rows, err := s.db.QueryContext(ctx, `SELECT id,type,prompt,media_url,options_json,correct_answer_json,feedback
		FROM questions WHERE bank_id=$1 ORDER BY position, id`, id)
	if err != nil {
		return Bank{}, fmt.Errorf("get questions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var q Question
		var opts, key string
		if err := rows.Scan(&q.ID, &q.Type, &q.Prompt, &q.MediaURL, &opts, &key, &q.Feedback); err != nil {
			return Bank{}, fmt.Errorf("scan question: %w", err)
		}
		q.Options = rawOrNil(opts)
		q.CorrectAnswer = rawOrNil(key)
		b.Questions = append(b.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return Bank{}, fmt.Errorf("get questions: %w", err)
	}
	return b, nil
}

// PutBank upserts a bank and replaces its questions. Authoring lives
// elsewhere; this is used for seeding.
func (s *SQLStore) PutBank(ctx context.Context, b Bank) error {
	return storage.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO banks (id,title,status,time_limit_minutes,random_questions,random_answers,
			passing_score_percent,feedback_timing,question_count,max_attempts,created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, status=EXCLUDED.status,
				time_limit_minutes=EXCLUDED.time_limit_minutes, random_questions=EXCLUDED.random_questions,
				random_answers=EXCLUDED.random_answers, passing_score_percent=EXCLUDED.passing_score_percent,
				feedback_timing=EXCLUDED.feedback_timing, question_count=EXCLUDED.question_count,
				max_attempts=EXCLUDED.max_attempts`,
			b.ID, b.Title, string(b.Status), b.TimeLimitMinutes, b.RandomQuestions, b.RandomAnswers,
			b.PassingScorePercent, string(b.FeedbackTiming), b.QuestionCount, b.MaxAttempts, time.Now().Unix())
		if err != nil {
			return fmt.Errorf("put bank: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE bank_id=$1`, b.ID); err != nil {
			return fmt.Errorf("clear questions: %w", err)
		}
		for i, q := range b.Questions {
			_, err := tx.ExecContext(ctx, `INSERT INTO questions (id,bank_id,position,type,prompt,media_url,options_json,correct_answer_json,feedback)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				q.ID, b.ID, i, q.Type, q.Prompt, q.MediaURL, string(q.Options), string(q.CorrectAnswer), q.Feedback)
			if err != nil {
				return fmt.Errorf("put question %s: %w", q.ID, err)
			}
		}
		return nil
	})
}

// ---- attempts ----

const attemptCols = `id,bank_id,user_id,status,question_order_json,option_order_json,responses_json,
	score,max_score,percentage,passed,started_at,completed_at,time_spent_seconds,last_elapsed_seconds,version`

func scanAttempt(sc scanner) (Attempt, error) {
	var a Attempt
	var status, orderJSON, optJSON, respJSON string
	var started int64
	var completed sql.NullInt64
	if err := sc.Scan(&a.ID, &a.BankID, &a.UserID, &status, &orderJSON, &optJSON, &respJSON,
		&a.Score, &a.MaxScore, &a.Percentage, &a.Passed, &started, &completed,
		&a.TimeSpentSeconds, &a.LastElapsedSeconds, &a.Version); err != nil {
		return Attempt{}, err
	}
	a.Status = Status(status)
	a.StartedAt = time.UnixMilli(started).UTC()
	if completed.Valid {
		t := time.UnixMilli(completed.Int64).UTC()
		a.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(orderJSON), &a.QuestionOrder); err != nil {
		return Attempt{}, fmt.Errorf("attempt %s: question order: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(optJSON), &a.OptionOrder); err != nil {
		return Attempt{}, fmt.Errorf("attempt %s: option order: %w", a.ID, err)
	}
	if err := json.Unmarshal([]byte(respJSON), &a.Responses); err != nil || a.Responses == nil {
		a.Responses = map[string]json.RawMessage{}
	}
	if a.OptionOrder == nil {
		a.OptionOrder = map[string][]string{}
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrNotFound
		}
		return Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, int, error) {
	where := []string{"user_id=$1"}
	args := []any{opts.UserID}
	if opts.BankID != "" {
		args = append(args, opts.BankID)
		where = append(where, fmt.Sprintf("bank_id=$%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attempts: %w", err)
	}

	args = append(args, opts.Limit, opts.Offset)
	q := fmt.Sprintf(`SELECT %s FROM attempts WHERE %s ORDER BY started_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		attemptCols, cond, len(args)-1, len(args))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list attempts: %w", err)
	}
	return out, total, nil
}

func (s *SQLStore) SaveResponses(ctx context.Context, id string, version int, responses map[string]json.RawMessage, elapsedSeconds int) (bool, error) {
	buf, err := marshalResponses(responses)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE attempts SET responses_json=$1, last_elapsed_seconds=$2, version=version+1
		WHERE id=$3 AND status='IN_PROGRESS' AND version=$4`, buf, elapsedSeconds, id, version)
	if err != nil {
		return false, fmt.Errorf("save responses: %w", err)
	}
	return affectedOne(res)
}

func (s *SQLStore) WithSerializable(ctx context.Context, fn func(tx AttemptTx) error) error {
	var opts *sql.TxOptions
	if s.driver == "postgres" {
		opts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	// SQLite transactions are serializable and the pool has a single writer.
	err := storage.WithTx(ctx, s.db, opts, func(tx *sql.Tx) error {
		return fn(attemptQueries{q: tx})
	})
	var qe *Error
	if err != nil && !errors.As(err, &qe) && isStartConflict(err) {
		return ErrAttemptInProgress
	}
	return err
}

func (a attemptQueries) CountFinishedAttempts(ctx context.Context, userID, bankID string) (int, error) {
	var n int
	err := a.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts
		WHERE user_id=$1 AND bank_id=$2 AND status IN ('COMPLETED','TIMED_OUT')`, userID, bankID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count finished attempts: %w", err)
	}
	return n, nil
}

func (a attemptQueries) FindInProgress(ctx context.Context, userID, bankID string) (Attempt, bool, error) {
	at, err := scanAttempt(a.q.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM attempts
		WHERE user_id=$1 AND bank_id=$2 AND status='IN_PROGRESS' LIMIT 1`, userID, bankID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, false, nil
		}
		return Attempt{}, false, fmt.Errorf("find live attempt: %w", err)
	}
	return at, true, nil
}

func (a attemptQueries) InsertAttempt(ctx context.Context, at Attempt) error {
	order, err := json.Marshal(at.QuestionOrder)
	if err != nil {
		return err
	}
	optOrder := at.OptionOrder
	if optOrder == nil {
		optOrder = map[string][]string{}
	}
	opts, err := json.Marshal(optOrder)
	if err != nil {
		return err
	}
	resp, err := marshalResponses(at.Responses)
	if err != nil {
		return err
	}
	_, err = a.q.ExecContext(ctx, `INSERT INTO attempts (id,bank_id,user_id,status,question_order_json,option_order_json,
		responses_json,started_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		at.ID, at.BankID, at.UserID, string(at.Status), string(order), string(opts), resp, at.StartedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (a attemptQueries) FinishAttempt(ctx context.Context, id string, f Finish) (bool, error) {
	res, err := a.q.ExecContext(ctx, `UPDATE attempts SET status=$1, score=$2, max_score=$3,
		percentage=$4, passed=$5, completed_at=$6, time_spent_seconds=$7
		WHERE id=$8 AND status='IN_PROGRESS' AND version=$9`,
		string(f.Status), f.Score, f.MaxScore, f.Percentage, f.Passed, f.CompletedAt.UnixMilli(), f.TimeSpentSeconds, id, f.Version)
	if err != nil {
		return false, fmt.Errorf("finish attempt: %w", err)
	}
	return affectedOne(res)
}

// helpers

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func marshalResponses(m map[string]json.RawMessage) (string, error) {
	if m == nil {
		m = map[string]json.RawMessage{}
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode responses: %w", err)
	}
	return string(buf), nil
}

func rawOrNil(s string) json.RawMessage {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return json.RawMessage(s)
}

// isStartConflict recognises a concurrent start that lost: a serialization
// failure or a hit on the one-live-attempt unique index.
func isStartConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || // sqlite
		strings.Contains(msg, "database is locked")
}
