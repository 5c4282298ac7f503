package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/mooc-credit-api/pkg/mailer"
)

// ErrQueueEmpty is returned by Pop when no message arrived before the timeout.
var ErrQueueEmpty = errors.New("mail queue empty")

// MailQueueRepository is a Redis list of pending mail messages. Producers
// LPUSH and consumers BRPOP, giving FIFO delivery.
type MailQueueRepository struct {
	client redis.Cmdable
	key    string
}

// NewMailQueueRepository constructs the repository over the list at key.
func NewMailQueueRepository(client redis.Cmdable, key string) *MailQueueRepository {
	if key == "" {
		key = "mail_sending"
	}
	return &MailQueueRepository{client: client, key: key}
}

// Push appends a message to the queue.
func (r *MailQueueRepository) Push(ctx context.Context, msg mailer.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail message: %w", err)
	}
	if err := r.client.LPush(ctx, r.key, payload).Err(); err != nil {
		return fmt.Errorf("redis push %s: %w", r.key, err)
	}
	return nil
}

// Pop waits up to timeout for the oldest message.
func (r *MailQueueRepository) Pop(ctx context.Context, timeout time.Duration) (*mailer.Message, error) {
	res, err := r.client.BRPop(ctx, timeout, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("redis pop %s: %w", r.key, err)
	}
	// BRPOP replies with [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("redis pop %s: unexpected reply length %d", r.key, len(res))
	}
	var msg mailer.Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return nil, fmt.Errorf("unmarshal mail message: %w", err)
	}
	return &msg, nil
}

// Len reports the number of pending messages.
func (r *MailQueueRepository) Len(ctx context.Context) (int64, error) {
	n, err := r.client.LLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis len %s: %w", r.key, err)
	}
	return n, nil
}
