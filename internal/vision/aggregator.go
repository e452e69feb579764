package vision

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lmcosta/snapsight/internal/model"
)

// Aggregator runs the five detectors against one image and assembles the
// partial analysis record. Labels, text, faces and safe-search are
// mandatory: any failure aborts the call with a DetectorFailure and no
// partial result. Dominant colors is best-effort: its failure is logged and
// replaced with an empty slice.
type Aggregator struct {
	detector Detector
	log      zerolog.Logger
}

// NewAggregator constructs an Aggregator.
func NewAggregator(detector Detector, log zerolog.Logger) *Aggregator {
	return &Aggregator{detector: detector, log: log}
}

// Analyze issues the five detector calls concurrently and blocks until all
// have returned. The assembled result is independent of completion order:
// mandatory failures are reported in the fixed order labels, text, faces,
// safe-search, and each detector writes only its own slot. Scores and
// confidences pass through as the backend returned them.
func (a *Aggregator) Analyze(ctx context.Context, image []byte) (*model.AnalysisResult, error) {
	var (
		wg sync.WaitGroup

		labels    []model.Label
		labelsErr error

		fullText  string
		fragments []model.TextFragment
		textErr   error

		faces    []model.Face
		facesErr error

		safe    model.SafeSearch
		safeErr error

		colors    []model.DominantColor
		colorsErr error
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		labels, labelsErr = a.detector.DetectLabels(ctx, image)
	}()
	go func() {
		defer wg.Done()
		fullText, fragments, textErr = a.detector.DetectText(ctx, image)
	}()
	go func() {
		defer wg.Done()
		faces, facesErr = a.detector.DetectFaces(ctx, image)
	}()
	go func() {
		defer wg.Done()
		safe, safeErr = a.detector.DetectSafeSearch(ctx, image)
	}()
	go func() {
		defer wg.Done()
		colors, colorsErr = a.detector.DetectColors(ctx, image)
	}()
	wg.Wait()

	mandatory := []struct {
		which string
		err   error
	}{
		{DetectorLabels, labelsErr},
		{DetectorText, textErr},
		{DetectorFaces, facesErr},
		{DetectorSafeSearch, safeErr},
	}
	for _, m := range mandatory {
		if m.err != nil {
			return nil, &DetectorFailure{Which: m.which, Cause: m.err}
		}
	}

	if colorsErr != nil {
		a.log.Warn().Err(colorsErr).Msg("colors detector failed, storing empty sequence")
		colors = []model.DominantColor{}
	}
	if colors == nil {
		colors = []model.DominantColor{}
	}
	if labels == nil {
		labels = []model.Label{}
	}
	if fragments == nil {
		fragments = []model.TextFragment{}
	}
	if faces == nil {
		faces = []model.Face{}
	}

	return &model.AnalysisResult{
		Labels:         labels,
		FullText:       fullText,
		TextFragments:  fragments,
		Faces:          faces,
		SafeSearch:     safe,
		DominantColors: colors,
		TotalLabels:    len(labels),
		TotalTexts:     len(fragments),
		TotalFaces:     len(faces),
	}, nil
}
