// Package vision calls the detector backend and aggregates the five
// per-image analyses into one result.
package vision

import (
	"context"
	"fmt"

	"github.com/lmcosta/snapsight/internal/model"
)

// Detector names used in failures and logs.
const (
	DetectorLabels     = "labels"
	DetectorText       = "text"
	DetectorFaces      = "faces"
	DetectorSafeSearch = "safe-search"
	DetectorColors     = "colors"
)

// Detector is the backend contract: five independent request/response calls
// per image, each of which may fail on its own. Timeouts are the client's
// concern and surface as ordinary errors.
type Detector interface {
	DetectLabels(ctx context.Context, image []byte) ([]model.Label, error)
	DetectText(ctx context.Context, image []byte) (string, []model.TextFragment, error)
	DetectFaces(ctx context.Context, image []byte) ([]model.Face, error)
	DetectSafeSearch(ctx context.Context, image []byte) (model.SafeSearch, error)
	DetectColors(ctx context.Context, image []byte) ([]model.DominantColor, error)
}

// DetectorFailure identifies which detector failed and why.
type DetectorFailure struct {
	Which string
	Cause error
}

func (e *DetectorFailure) Error() string {
	return fmt.Sprintf("detector %s: %v", e.Which, e.Cause)
}

func (e *DetectorFailure) Unwrap() error {
	return e.Cause
}
