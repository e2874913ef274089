package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher delivers withdrawal notifications to an external channel. Delivery
// is best-effort: callers treat errors as non-fatal.
type Publisher interface {
	PublishWithdrawal(ctx context.Context, userID int64, withdrawAt time.Time) error
}

type withdrawMessage struct {
	UserID     int64     `json:"userId"`
	WithdrawAt time.Time `json:"withdrawAt"`
}

// RedisPublisher publishes withdrawal messages as JSON on a Redis channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher builds a publisher for the given channel.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// PublishWithdrawal sends the withdrawal message.
func (p *RedisPublisher) PublishWithdrawal(ctx context.Context, userID int64, withdrawAt time.Time) error {
	payload, err := json.Marshal(withdrawMessage{UserID: userID, WithdrawAt: withdrawAt})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// LogPublisher records withdrawal messages in the service log. Used when no
// Redis endpoint is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher builds a log-backed publisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// PublishWithdrawal logs the withdrawal message.
func (p *LogPublisher) PublishWithdrawal(_ context.Context, userID int64, withdrawAt time.Time) error {
	p.logger.Info("user withdrawn",
		zap.Int64("user_id", userID),
		zap.Time("withdraw_at", withdrawAt))
	return nil
}
