package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

const DefaultChannel = "quiz.attempt.passed"

// Message is the JSON payload published for every passed attempt.
type Message struct {
	Event  string          `json:"event"`
	SentAt time.Time       `json:"sent_at"`
	Notice quiz.PassNotice `json:"notice"`
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher fans pass notices out over Redis pub/sub.
type RedisPublisher struct {
	client  publisher
	channel string
	now     func() time.Time
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return newRedisPublisher(client, channel)
}

func newRedisPublisher(client publisher, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel, now: time.Now}
}

func (p *RedisPublisher) AttemptPassed(ctx context.Context, n quiz.PassNotice) error {
	data, err := json.Marshal(Message{Event: "attempt.passed", SentAt: p.now().UTC(), Notice: n})
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}

// Connect parses a redis:// URL and checks the server is reachable.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// LogNotifier writes pass notices to the log. Used when no broker is
// configured.
type LogNotifier struct{ Log *slog.Logger }

func (l LogNotifier) AttemptPassed(_ context.Context, n quiz.PassNotice) error {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("attempt passed",
		"attempt_id", n.AttemptID,
		"bank_id", n.BankID,
		"bank_title", n.BankTitle,
		"user", n.DisplayName,
		"percentage", n.Percentage)
	return nil
}
