package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/lmcosta/snapsight/internal/model"
	"github.com/lmcosta/snapsight/internal/repository"
)

// Consumer handles delivered notification messages. Returning nil from the
// handler acknowledges the message; returning an error negatively
// acknowledges it and the queue redelivers, up to the publisher's retry cap.
//
// The side effect is idempotent: history records are keyed by result id and
// written insert-if-absent, so a message redelivered after a crash between
// persist and ack leaves exactly one record.
type Consumer struct {
	history  *repository.NotificationRepository
	log      zerolog.Logger
	maxBytes int64
	inFlight *semaphore.Weighted
}

// NewConsumer constructs a Consumer. maxInFlightBytes bounds the total
// payload bytes being processed at once; the concurrent message count is
// bounded separately by the asynq server's concurrency setting.
func NewConsumer(history *repository.NotificationRepository, maxInFlightBytes int64, log zerolog.Logger) *Consumer {
	return &Consumer{
		history:  history,
		log:      log,
		maxBytes: maxInFlightBytes,
		inFlight: semaphore.NewWeighted(maxInFlightBytes),
	}
}

// Handler returns the mux to plug into the asynq server.
func (c *Consumer) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(c.flowControl)
	mux.HandleFunc(TaskDeliver, c.handleDeliver)
	return mux
}

// flowControl holds messages until their payload fits the in-flight byte
// budget. Payloads larger than the whole budget take the whole budget.
func (c *Consumer) flowControl(h asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		weight := int64(len(task.Payload()))
		if weight > c.maxBytes {
			weight = c.maxBytes
		}
		if weight > 0 {
			if err := c.inFlight.Acquire(ctx, weight); err != nil {
				return fmt.Errorf("acquire flow budget: %w", err)
			}
			defer c.inFlight.Release(weight)
		}
		return h.ProcessTask(ctx, task)
	})
}

func (c *Consumer) handleDeliver(ctx context.Context, task *asynq.Task) error {
	var msg model.NotificationMessage
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	rec := &model.NotificationRecord{
		FileName:    msg.FileName,
		ResultID:    msg.ResultID,
		EmittedAt:   msg.EmittedAt,
		ReceivedAt:  time.Now().UTC(),
		TotalLabels: msg.TotalLabels,
		TotalTexts:  msg.TotalTexts,
		TotalFaces:  msg.TotalFaces,
	}
	created, err := c.history.Record(ctx, rec)
	if err != nil {
		return fmt.Errorf("persist notification for %s: %w", msg.ResultID, err)
	}
	if !created {
		c.log.Debug().Str("result_id", msg.ResultID).Msg("duplicate delivery, already recorded")
		return nil
	}
	c.log.Info().
		Str("result_id", msg.ResultID).
		Str("file_name", msg.FileName).
		Int("labels", msg.TotalLabels).
		Int("texts", msg.TotalTexts).
		Int("faces", msg.TotalFaces).
		Msg("notification recorded")
	return nil
}
