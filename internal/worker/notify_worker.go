package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"PasteBox/config"
	"PasteBox/internal/mq"
	"PasteBox/internal/task"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/time/rate"
)

type dlqMessage struct {
	TaskID   uint64    `json:"task_id"`
	Attempt  int       `json:"attempt"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// TaskProcessor runs one notify task.
type TaskProcessor interface {
	ProcessNotifyTask(ctx context.Context, taskID uint64) error
}

// TaskStatus records retry and failure outcomes of a task.
type TaskStatus interface {
	MarkRetrying(ctx context.Context, id uint64, attempt int, cause error, next time.Time) error
	MarkFailed(ctx context.Context, id uint64, cause error) error
}

// Requeuer publishes retry and dead-letter messages. *mq.Client satisfies it.
type Requeuer interface {
	PublishRetry(ctx context.Context, body []byte, delay time.Duration) error
	PublishDLQ(ctx context.Context, body []byte) error
}

// NotifyOptions tunes the notify worker.
type NotifyOptions struct {
	URL         string
	Prefetch    int
	Concurrency int
	Rate        float64
	Burst       int
	RetryMax    int
	RetryDelays []time.Duration
}

func NotifyOptionsFromConfig(cfg config.Config) NotifyOptions {
	return NotifyOptions{
		URL:         cfg.RabbitMQURL,
		Prefetch:    cfg.RabbitMQPrefetch,
		Concurrency: cfg.NotifyWorkerConcurrency,
		Rate:        cfg.NotifyRate,
		Burst:       cfg.NotifyBurst,
		RetryMax:    cfg.NotifyRetryMax,
		RetryDelays: cfg.NotifyRetryDelays,
	}
}

// NotifyWorker consumes share notification tasks from RabbitMQ.
type NotifyWorker struct {
	processor TaskProcessor
	tasks     TaskStatus
	opts      NotifyOptions
	limiter   *rate.Limiter
	log       *slog.Logger
	now       func() time.Time
}

func NewNotifyWorker(processor TaskProcessor, tasks TaskStatus, opts NotifyOptions, log *slog.Logger) *NotifyWorker {
	if opts.Prefetch <= 0 {
		opts.Prefetch = 1
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	if log == nil {
		log = slog.Default()
	}
	return &NotifyWorker{
		processor: processor,
		tasks:     tasks,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, opts.Burst),
		log:       log.With("component", "notify_worker"),
		now:       time.Now,
	}
}

// Run consumes until ctx is done or the delivery channel closes.
func (w *NotifyWorker) Run(ctx context.Context) error {
	client, err := mq.Dial(w.opts.URL)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.DeclareTopology(); err != nil {
		return err
	}
	if err := client.Channel.Qos(w.opts.Prefetch, 0, false); err != nil {
		return err
	}

	deliveries, err := client.Channel.Consume(
		mq.QueueTasks,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	sem := make(chan struct{}, w.opts.Concurrency)
	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("notify worker: delivery channel closed")
			}
			sem <- struct{}{}
			go func(d amqp.Delivery) {
				defer func() { <-sem }()
				w.handle(ctx, client, d)
			}(delivery)
		}
	}
}

func (w *NotifyWorker) handle(ctx context.Context, requeue Requeuer, delivery amqp.Delivery) {
	var msg task.NotifyMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		w.log.Warn("invalid message", "err", err)
		_ = delivery.Ack(false)
		return
	}

	if err := w.limiter.Wait(ctx); err != nil {
		_ = delivery.Nack(false, true)
		return
	}

	if err := w.processor.ProcessNotifyTask(ctx, msg.TaskID); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			_ = delivery.Nack(false, true)
			return
		}
		w.log.Warn("notify task failed", "task_id", msg.TaskID, "attempt", msg.Attempt, "err", err)
		if shouldRetry(err) {
			err = w.scheduleRetry(ctx, requeue, msg, err)
		} else {
			err = w.markFailed(ctx, requeue, msg, err)
		}
		if err != nil {
			w.log.Error("record task outcome failed", "task_id", msg.TaskID, "err", err)
			_ = delivery.Nack(false, true)
			return
		}
	}

	_ = delivery.Ack(false)
}

func shouldRetry(err error) bool {
	return !task.IsPermanent(err)
}

func (w *NotifyWorker) scheduleRetry(ctx context.Context, requeue Requeuer, msg task.NotifyMessage, procErr error) error {
	nextAttempt := msg.Attempt + 1
	if w.opts.RetryMax == 0 || nextAttempt > w.opts.RetryMax {
		return w.markFailed(ctx, requeue, msg, procErr)
	}

	delay := pickRetryDelay(nextAttempt, w.opts.RetryDelays)
	if err := w.tasks.MarkRetrying(ctx, msg.TaskID, nextAttempt, procErr, w.now().Add(delay)); err != nil {
		return err
	}

	msg.Attempt = nextAttempt
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return requeue.PublishRetry(ctx, body, delay)
}

func (w *NotifyWorker) markFailed(ctx context.Context, requeue Requeuer, msg task.NotifyMessage, procErr error) error {
	if err := w.tasks.MarkFailed(ctx, msg.TaskID, procErr); err != nil {
		return err
	}

	dlq := dlqMessage{
		TaskID:   msg.TaskID,
		Attempt:  msg.Attempt,
		Error:    procErr.Error(),
		FailedAt: w.now(),
	}
	body, err := json.Marshal(dlq)
	if err != nil {
		return err
	}
	if err := requeue.PublishDLQ(ctx, body); err != nil {
		w.log.Warn("dlq publish failed", "task_id", msg.TaskID, "err", err)
	}
	return nil
}

func pickRetryDelay(attempt int, delays []time.Duration) time.Duration {
	if len(delays) == 0 {
		return 0
	}
	index := attempt - 1
	if index < 0 {
		index = 0
	}
	if index >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[index]
}
