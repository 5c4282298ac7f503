package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mooc-credit-api/internal/repository"
	"github.com/noah-isme/mooc-credit-api/pkg/mailer"
)

type mailConsumer interface {
	Pop(ctx context.Context, timeout time.Duration) (*mailer.Message, error)
	Push(ctx context.Context, msg mailer.Message) error
}

// MailWorkerConfig tunes the consumer loop.
type MailWorkerConfig struct {
	PopTimeout  time.Duration
	MaxAttempts int
	ErrorDelay  time.Duration
}

// MailWorker drains the Redis mail list and delivers each message. Delivery
// is at-least-once: a failed send is pushed back until MaxAttempts.
type MailWorker struct {
	queue   mailConsumer
	sender  mailer.Sender
	metrics *MetricsService
	logger  *zap.Logger
	cfg     MailWorkerConfig
}

// NewMailWorker constructs a worker.
func NewMailWorker(queue mailConsumer, sender mailer.Sender, metrics *MetricsService, logger *zap.Logger, cfg MailWorkerConfig) *MailWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ErrorDelay <= 0 {
		cfg.ErrorDelay = time.Second
	}
	return &MailWorker{queue: queue, sender: sender, metrics: metrics, logger: logger, cfg: cfg}
}

// Run consumes until ctx is cancelled.
func (w *MailWorker) Run(ctx context.Context) error {
	w.logger.Info("mail worker started")
	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("mail worker stopped")
			return nil
		}
		if _, err := w.ProcessOne(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("mail queue unavailable", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(w.cfg.ErrorDelay):
			}
		}
	}
}

// ProcessOne pops and delivers at most one message. It reports whether a
// message was taken; the error is only set when the queue itself failed.
func (w *MailWorker) ProcessOne(ctx context.Context) (bool, error) {
	msg, err := w.queue.Pop(ctx, w.cfg.PopTimeout)
	if errors.Is(err, repository.ErrQueueEmpty) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := msg.Validate(); err != nil {
		w.metrics.RecordMailDelivery(err)
		w.logger.Error("discarding undeliverable mail", zap.String("id", msg.ID), zap.Error(err))
		return true, nil
	}

	sendErr := w.sender.Send(ctx, *msg)
	w.metrics.RecordMailDelivery(sendErr)
	if sendErr == nil {
		w.logger.Info("mail sent", zap.String("id", msg.ID), zap.String("email", msg.Email))
		return true, nil
	}

	msg.Attempts++
	if msg.Attempts >= w.cfg.MaxAttempts {
		w.logger.Error("mail delivery abandoned", zap.String("id", msg.ID), zap.Int("attempts", msg.Attempts), zap.Error(sendErr))
		return true, nil
	}
	w.logger.Warn("mail delivery failed, requeueing", zap.String("id", msg.ID), zap.Int("attempts", msg.Attempts), zap.Error(sendErr))
	if err := w.queue.Push(ctx, *msg); err != nil {
		w.logger.Error("failed to requeue mail", zap.String("id", msg.ID), zap.Error(err))
	}
	return true, nil
}
