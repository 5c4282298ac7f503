package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/mooc-credit-api/pkg/jobs"
	"github.com/noah-isme/mooc-credit-api/pkg/mailer"
)

// JobTypeMail identifies mail jobs on the in-process queue.
const JobTypeMail = "mail"

// Notifier hands a message to the mail pipeline. It never fails the caller.
type Notifier interface {
	Enqueue(ctx context.Context, email, subject, body string)
}

type mailJobDispatcher interface {
	TryEnqueue(job jobs.Job) error
}

type mailPublisher interface {
	Push(ctx context.Context, msg mailer.Message) error
}

// NotificationService buffers outgoing mail on a bounded in-process queue.
// A full or stopped queue drops the message with a warning.
type NotificationService struct {
	queue   mailJobDispatcher
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs the dispatcher.
func NewNotificationService(queue mailJobDispatcher, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{queue: queue, metrics: metrics, logger: logger}
}

// Enqueue implements Notifier.
func (s *NotificationService) Enqueue(_ context.Context, email, subject, body string) {
	msg := mailer.Message{Email: strings.TrimSpace(email), Subject: subject, Body: body}
	if err := msg.Validate(); err != nil {
		s.metrics.RecordNotification("invalid")
		s.logger.Warn("notification rejected", zap.String("email", email), zap.Error(err))
		return
	}
	if s.queue == nil {
		s.metrics.RecordNotification("dropped")
		s.logger.Warn("notification dropped, no queue configured", zap.String("email", msg.Email))
		return
	}
	if err := s.queue.TryEnqueue(jobs.Job{Type: JobTypeMail, Payload: msg}); err != nil {
		s.metrics.RecordNotification("dropped")
		s.logger.Warn("notification dropped", zap.String("email", msg.Email), zap.String("subject", msg.Subject), zap.Error(err))
		return
	}
	s.metrics.RecordNotification("queued")
}

// MailPublishHandler returns the queue handler that publishes mail jobs to
// the shared Redis list consumed by the mail worker.
func MailPublishHandler(publisher mailPublisher, metrics *MetricsService) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		msg, ok := job.Payload.(mailer.Message)
		if !ok {
			return fmt.Errorf("mail job %s: unexpected payload %T", job.ID, job.Payload)
		}
		msg.ID = job.ID
		msg.QueuedAt = job.Enqueued
		if err := publisher.Push(ctx, msg); err != nil {
			return err
		}
		metrics.RecordNotification("published")
		return nil
	}
}

// MailPublishDone reports a publish that exhausted its retries.
func MailPublishDone(metrics *MetricsService, logger *zap.Logger) func(jobs.Job, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(job jobs.Job, err error) {
		if err == nil {
			return
		}
		metrics.RecordNotification("failed")
		logger.Error("mail publish abandoned", zap.String("job_id", job.ID), zap.Error(err))
	}
}
