package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"PasteBox/internal/service"
	"PasteBox/model"
	"PasteBox/utils"

	"golang.org/x/net/context"
)

// NotifyMessage is the payload sent to the worker.
type NotifyMessage struct {
	TaskID  uint64 `json:"task_id"`
	Attempt int    `json:"attempt"`
}

// TaskStore persists notify tasks.
type TaskStore interface {
	Create(ctx context.Context, task *model.NotifyTask) error
	Get(ctx context.Context, id uint64) (*model.NotifyTask, error)
	ClaimRunning(ctx context.Context, id uint64) (bool, error)
	MarkCompleted(ctx context.Context, id uint64) error
	MarkRetrying(ctx context.Context, id uint64, attempt int, cause error, next time.Time) error
	MarkFailed(ctx context.Context, id uint64, cause error) error
}

// TaskPublisher puts a task message on the work queue.
type TaskPublisher interface {
	PublishTask(ctx context.Context, body []byte) error
}

// Enqueuer creates notify tasks and hands them to the queue.
type Enqueuer struct {
	tasks     TaskStore
	publisher TaskPublisher
	log       *slog.Logger
}

var _ service.ShareNotifier = (*Enqueuer)(nil)

func NewEnqueuer(tasks TaskStore, publisher TaskPublisher, log *slog.Logger) *Enqueuer {
	if log == nil {
		log = slog.Default()
	}
	return &Enqueuer{tasks: tasks, publisher: publisher, log: log}
}

// EnqueueShareEmail creates and enqueues an email task for fileID.
func (e *Enqueuer) EnqueueShareEmail(ctx context.Context, fileID, recipient string) (uint64, error) {
	task := &model.NotifyTask{
		FileID:    fileID,
		Channel:   "email",
		Recipient: recipient,
		Status:    model.NotifyStatusPending,
	}
	if err := e.tasks.Create(ctx, task); err != nil {
		return 0, err
	}
	body, err := json.Marshal(NotifyMessage{TaskID: task.ID})
	if err != nil {
		e.markFailed(ctx, task.ID, err)
		return 0, err
	}
	if err := e.publisher.PublishTask(ctx, body); err != nil {
		e.markFailed(ctx, task.ID, err)
		return 0, fmt.Errorf("publish notify task: %w", err)
	}
	return task.ID, nil
}

func (e *Enqueuer) markFailed(ctx context.Context, id uint64, cause error) {
	if err := e.tasks.MarkFailed(ctx, id, cause); err != nil {
		e.log.Error("mark notify task failed", "task_id", id, "err", err)
	}
}

// FileLookup is the read side of the file service a processor needs.
type FileLookup interface {
	Get(ctx context.Context, id string) (*model.FileRecord, error)
	View(ctx context.Context, rec *model.FileRecord) *service.FileRecordView
}

// ShareSender delivers a rendered share message.
type ShareSender interface {
	SendShareLink(msg utils.ShareMessage) error
}

// Processor executes notify tasks.
type Processor struct {
	tasks  TaskStore
	files  FileLookup
	sender ShareSender
}

func NewProcessor(tasks TaskStore, files FileLookup, sender ShareSender) *Processor {
	return &Processor{tasks: tasks, files: files, sender: sender}
}

// ProcessNotifyTask sends the share email of one task. A task another worker
// holds, or one already finished, is skipped without error.
func (p *Processor) ProcessNotifyTask(ctx context.Context, taskID uint64) error {
	task, err := p.tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status == model.NotifyStatusCompleted || task.Status == model.NotifyStatusFailed {
		return nil
	}
	claimed, err := p.tasks.ClaimRunning(ctx, taskID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	rec, err := p.files.Get(ctx, task.FileID)
	if err != nil {
		return err
	}
	if rec.Status == model.StatusDeleted {
		return service.ErrGone
	}
	view := p.files.View(ctx, rec)
	msg := utils.ShareMessage{
		To:        task.Recipient,
		FileName:  view.Name,
		ShortURL:  view.ShortURL,
		Size:      view.Size,
		Protected: view.IsPasswordProtected,
	}
	if view.HasExpiry && view.ExpiresAt != nil {
		msg.ExpiresAt = view.ExpiresAt.UTC().Format(time.RFC1123)
	}
	if err := p.sender.SendShareLink(msg); err != nil {
		return err
	}
	return p.tasks.MarkCompleted(ctx, taskID)
}

// IsPermanent reports whether a processing error will repeat on retry.
func IsPermanent(err error) bool {
	return errors.Is(err, service.ErrNotFound) ||
		errors.Is(err, service.ErrGone) ||
		errors.Is(err, service.ErrInvalidInput) ||
		errors.Is(err, utils.ErrSMTPNotConfigured)
}
