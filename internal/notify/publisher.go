package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/lmcosta/snapsight/internal/model"
)

// Enqueuer is the slice of asynq.Client the publisher needs; tests swap in
// a fake.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher serializes notification messages onto the notifications queue.
// Callers decide what to do with an enqueue failure; the pipeline treats it
// as non-fatal because the durable result already exists by then.
type Publisher struct {
	client   Enqueuer
	maxRetry int
}

// NewPublisher constructs a Publisher. maxRetry caps redelivery attempts per
// message; exhausted tasks are archived by the queue (the dead-letter path).
func NewPublisher(client Enqueuer, maxRetry int) *Publisher {
	return &Publisher{client: client, maxRetry: maxRetry}
}

// Publish enqueues the message. It never blocks on consumption; the queue
// decouples producer and consumer cadence.
func (p *Publisher) Publish(ctx context.Context, msg model.NotificationMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	task := asynq.NewTask(TaskDeliver, data)
	if _, err := p.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(p.maxRetry),
	); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}
