package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmcosta/snapsight/internal/model"
)

type fakeBlobReader struct {
	data map[string][]byte
	err  error
}

func (f *fakeBlobReader) Read(ctx context.Context, bucket, objectName string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data[objectName], nil
}

type fakeAnalyzer struct {
	result *model.AnalysisResult
	err    error
	images [][]byte
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, image []byte) (*model.AnalysisResult, error) {
	f.images = append(f.images, image)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeCreator struct {
	created []*model.AnalysisResult
	names   []string
	err     error
}

func (f *fakeCreator) Create(ctx context.Context, fileName string, res *model.AnalysisResult) (*model.AnalysisResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	stored := *res
	stored.ID = "stored-1"
	stored.FileName = fileName
	stored.Status = model.StatusProcessed
	f.created = append(f.created, &stored)
	f.names = append(f.names, fileName)
	return &stored, nil
}

type fakePublisher struct {
	published []model.NotificationMessage
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, msg model.NotificationMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

var testExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

func analyzedResult() *model.AnalysisResult {
	return &model.AnalysisResult{
		Labels:         []model.Label{{Description: "dog", Score: 0.9}, {Description: "park", Score: 0.6}},
		TextFragments:  []model.TextFragment{{Text: "fetch", Confidence: 0.8}},
		Faces:          []model.Face{},
		SafeSearch:     model.SafeSearch{Adult: "VERY_UNLIKELY"},
		DominantColors: []model.DominantColor{},
		TotalLabels:    2,
		TotalTexts:     1,
		TotalFaces:     0,
	}
}

func newTestOrchestrator(blobs *fakeBlobReader, analyzer *fakeAnalyzer, creator *fakeCreator, pub *fakePublisher) *Orchestrator {
	return New(blobs, analyzer, creator, pub, testExtensions, "output/", zerolog.Nop())
}

func TestShouldProcess(t *testing.T) {
	o := newTestOrchestrator(&fakeBlobReader{}, &fakeAnalyzer{}, &fakeCreator{}, &fakePublisher{})

	tests := []struct {
		object string
		want   bool
	}{
		{"uploads/abc/photo.jpg", true},
		{"uploads/abc/PHOTO.JPG", true},
		{"uploads/abc/scan.png", true},
		{"uploads/abc/report.pdf", false},
		{"output/derived.jpg", false},
		{"noextension", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, o.ShouldProcess(tt.object), tt.object)
	}
}

func TestRunIgnoredTriggerIsSkipped(t *testing.T) {
	blobs := &fakeBlobReader{}
	analyzer := &fakeAnalyzer{}
	creator := &fakeCreator{}
	pub := &fakePublisher{}
	o := newTestOrchestrator(blobs, analyzer, creator, pub)

	stored, err := o.Run(context.Background(), Trigger{Bucket: "images", ObjectName: "notes.txt"})
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.Empty(t, analyzer.images)
	assert.Empty(t, creator.created)
	assert.Empty(t, pub.published)
}

func TestRunHappyPathPublishesCounters(t *testing.T) {
	blobs := &fakeBlobReader{data: map[string][]byte{"uploads/abc/dog.jpg": []byte("raw-bytes")}}
	analyzer := &fakeAnalyzer{result: analyzedResult()}
	creator := &fakeCreator{}
	pub := &fakePublisher{}
	o := newTestOrchestrator(blobs, analyzer, creator, pub)

	stored, err := o.Run(context.Background(), Trigger{
		Bucket:     "images",
		ObjectName: "uploads/abc/dog.jpg",
		FileName:   "dog.jpg",
	})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "dog.jpg", stored.FileName)

	require.Len(t, analyzer.images, 1)
	assert.Equal(t, []byte("raw-bytes"), analyzer.images[0])

	require.Len(t, pub.published, 1)
	msg := pub.published[0]
	assert.Equal(t, stored.ID, msg.ResultID)
	assert.Equal(t, "dog.jpg", msg.FileName)
	assert.Equal(t, stored.TotalLabels, msg.TotalLabels)
	assert.Equal(t, stored.TotalTexts, msg.TotalTexts)
	assert.Equal(t, stored.TotalFaces, msg.TotalFaces)
	assert.False(t, msg.EmittedAt.IsZero())
}

func TestRunFileNameDefaultsToObjectName(t *testing.T) {
	blobs := &fakeBlobReader{data: map[string][]byte{"cat.png": []byte("img")}}
	analyzer := &fakeAnalyzer{result: analyzedResult()}
	creator := &fakeCreator{}
	o := newTestOrchestrator(blobs, analyzer, creator, &fakePublisher{})

	_, err := o.Run(context.Background(), Trigger{Bucket: "images", ObjectName: "cat.png"})
	require.NoError(t, err)
	require.Len(t, creator.names, 1)
	assert.Equal(t, "cat.png", creator.names[0])
}

func TestRunStageErrorsAreFatal(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name  string
		setup func() *Orchestrator
		stage Stage
	}{
		{
			name: "fetch failure",
			setup: func() *Orchestrator {
				return newTestOrchestrator(&fakeBlobReader{err: cause}, &fakeAnalyzer{result: analyzedResult()}, &fakeCreator{}, &fakePublisher{})
			},
			stage: StageFetching,
		},
		{
			name: "analyze failure",
			setup: func() *Orchestrator {
				return newTestOrchestrator(&fakeBlobReader{}, &fakeAnalyzer{err: cause}, &fakeCreator{}, &fakePublisher{})
			},
			stage: StageAnalyzing,
		},
		{
			name: "persist failure",
			setup: func() *Orchestrator {
				return newTestOrchestrator(&fakeBlobReader{}, &fakeAnalyzer{result: analyzedResult()}, &fakeCreator{err: cause}, &fakePublisher{})
			},
			stage: StagePersisting,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.setup()
			stored, err := o.Run(context.Background(), Trigger{Bucket: "images", ObjectName: "a.jpg"})
			assert.Nil(t, stored)
			var perr *Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.stage, perr.Stage)
			assert.ErrorIs(t, err, cause)
		})
	}
}

func TestRunPublishFailureIsNonFatal(t *testing.T) {
	blobs := &fakeBlobReader{data: map[string][]byte{"a.jpg": []byte("img")}}
	analyzer := &fakeAnalyzer{result: analyzedResult()}
	creator := &fakeCreator{}
	pub := &fakePublisher{err: errors.New("broker down")}
	o := newTestOrchestrator(blobs, analyzer, creator, pub)

	stored, err := o.Run(context.Background(), Trigger{Bucket: "images", ObjectName: "a.jpg"})
	require.NoError(t, err)
	require.NotNil(t, stored)
	// The result was still persisted exactly once.
	assert.Len(t, creator.created, 1)
}

func TestHandlerDecodesTrigger(t *testing.T) {
	blobs := &fakeBlobReader{data: map[string][]byte{"uploads/x/a.jpg": []byte("img")}}
	analyzer := &fakeAnalyzer{result: analyzedResult()}
	creator := &fakeCreator{}
	o := newTestOrchestrator(blobs, analyzer, creator, &fakePublisher{})

	payload, err := json.Marshal(Trigger{Bucket: "images", ObjectName: "uploads/x/a.jpg", FileName: "a.jpg"})
	require.NoError(t, err)

	err = o.Handler().ProcessTask(context.Background(), asynq.NewTask(TaskAnalyze, payload))
	require.NoError(t, err)
	assert.Len(t, creator.created, 1)
}

func TestHandlerRejectsMalformedTrigger(t *testing.T) {
	o := newTestOrchestrator(&fakeBlobReader{}, &fakeAnalyzer{}, &fakeCreator{}, &fakePublisher{})
	err := o.Handler().ProcessTask(context.Background(), asynq.NewTask(TaskAnalyze, []byte("{broken")))
	assert.Error(t, err)
}
