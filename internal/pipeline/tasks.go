// Package pipeline orchestrates one analysis run: fetch the image, run the
// detectors, persist the result, emit the notification.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// TaskAnalyze is scheduled each time a new image becomes available.
	TaskAnalyze = "image:analyze"
	// QueueAnalysis is the queue analysis triggers transit.
	QueueAnalysis = "analysis"
)

// Trigger identifies the newly available object.
type Trigger struct {
	Bucket     string `json:"bucket"`
	ObjectName string `json:"object_name"`
	FileName   string `json:"file_name"`
}

// EnqueueAnalyze schedules an analysis run for the object.
func EnqueueAnalyze(ctx context.Context, client *asynq.Client, trigger Trigger) error {
	data, err := json.Marshal(trigger)
	if err != nil {
		return fmt.Errorf("marshal trigger: %w", err)
	}
	task := asynq.NewTask(TaskAnalyze, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.Queue(QueueAnalysis), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue analyze task: %w", err)
	}
	return nil
}
