package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/lmcosta/snapsight/internal/model"
)

// Stage names a pipeline phase for error reporting.
type Stage string

const (
	StageFetching   Stage = "fetching"
	StageAnalyzing  Stage = "analyzing"
	StagePersisting Stage = "persisting"
	StageNotifying  Stage = "notifying"
)

// Error tags a fatal failure with the stage it occurred in.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BlobReader fetches the raw bytes of an uploaded object.
type BlobReader interface {
	Read(ctx context.Context, bucket, objectName string) ([]byte, error)
}

// Analyzer runs the detectors against one image.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte) (*model.AnalysisResult, error)
}

// ResultCreator persists one assembled result.
type ResultCreator interface {
	Create(ctx context.Context, fileName string, res *model.AnalysisResult) (*model.AnalysisResult, error)
}

// NotificationPublisher emits the post-persist summary.
type NotificationPublisher interface {
	Publish(ctx context.Context, msg model.NotificationMessage) error
}

// Orchestrator sequences one triggered run: Fetching -> Analyzing ->
// Persisting -> Notifying. The first three stages are fatal on failure and
// surface to the caller, which owns retry of the trigger. Notifying failure
// is logged and swallowed: the durable result already exists, so the run
// still succeeds. At most one result is created per successful run.
type Orchestrator struct {
	blobs        BlobReader
	analyzer     Analyzer
	results      ResultCreator
	publisher    NotificationPublisher
	extensions   []string
	outputPrefix string
	log          zerolog.Logger
}

// New constructs an Orchestrator. extensions is the lower-cased set of
// object name suffixes recognized as images; objects under outputPrefix are
// never analyzed.
func New(
	blobs BlobReader,
	analyzer Analyzer,
	results ResultCreator,
	publisher NotificationPublisher,
	extensions []string,
	outputPrefix string,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		blobs:        blobs,
		analyzer:     analyzer,
		results:      results,
		publisher:    publisher,
		extensions:   extensions,
		outputPrefix: outputPrefix,
		log:          log,
	}
}

// ShouldProcess reports whether the object is a recognized image outside the
// output namespace.
func (o *Orchestrator) ShouldProcess(objectName string) bool {
	if o.outputPrefix != "" && strings.HasPrefix(objectName, o.outputPrefix) {
		return false
	}
	lower := strings.ToLower(objectName)
	for _, ext := range o.extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Run executes one pipeline run. Ignored triggers return (nil, nil): no
// result, no error. A nil result with a nil error therefore means the
// trigger was skipped.
func (o *Orchestrator) Run(ctx context.Context, trigger Trigger) (*model.AnalysisResult, error) {
	if !o.ShouldProcess(trigger.ObjectName) {
		o.log.Info().Str("object", trigger.ObjectName).Msg("object ignored")
		return nil, nil
	}
	log := o.log.With().Str("bucket", trigger.Bucket).Str("object", trigger.ObjectName).Logger()
	log.Info().Msg("processing image")

	image, err := o.blobs.Read(ctx, trigger.Bucket, trigger.ObjectName)
	if err != nil {
		return nil, &Error{Stage: StageFetching, Err: err}
	}

	analysis, err := o.analyzer.Analyze(ctx, image)
	if err != nil {
		return nil, &Error{Stage: StageAnalyzing, Err: err}
	}

	fileName := trigger.FileName
	if fileName == "" {
		fileName = trigger.ObjectName
	}
	stored, err := o.results.Create(ctx, fileName, analysis)
	if err != nil {
		return nil, &Error{Stage: StagePersisting, Err: err}
	}

	msg := model.NewNotificationMessage(stored, time.Now().UTC())
	if err := o.publisher.Publish(ctx, msg); err != nil {
		// Non-fatal: durability of the result is what success means here,
		// delivery of the notification is best-effort.
		log.Warn().Err(err).Str("result_id", stored.ID).Msg("notification publish failed")
	}

	log.Info().
		Str("result_id", stored.ID).
		Int("labels", stored.TotalLabels).
		Int("texts", stored.TotalTexts).
		Int("faces", stored.TotalFaces).
		Msg("image processed")
	return stored, nil
}

// Handler returns the mux to plug into the asynq server.
func (o *Orchestrator) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskAnalyze, o.handleAnalyze)
	return mux
}

func (o *Orchestrator) handleAnalyze(ctx context.Context, task *asynq.Task) error {
	var trigger Trigger
	if err := json.Unmarshal(task.Payload(), &trigger); err != nil {
		return fmt.Errorf("decode trigger: %w", err)
	}
	if _, err := o.Run(ctx, trigger); err != nil {
		o.log.Error().Err(err).Str("object", trigger.ObjectName).Msg("pipeline run failed")
		return err
	}
	return nil
}
