// Package model contains the typed records shared across the pipeline,
// repositories and API.
package model

import "time"

// ResultStatus describes the lifecycle of an analysis record. Records are
// written once, fully assembled; there is no in-progress state.
type ResultStatus string

const (
	StatusProcessed ResultStatus = "processed"
)

// Label is one object/concept detected in the image.
type Label struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// TextFragment is one piece of recognized text with the detector's confidence.
type TextFragment struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Face carries the detection confidence plus emotion likelihood ordinals
// (see LikelihoodOrdinal).
type Face struct {
	Confidence float64 `json:"confidence"`
	Joy        int     `json:"joy"`
	Surprise   int     `json:"surprise"`
	Anger      int     `json:"anger"`
	Sorrow     int     `json:"sorrow"`
}

// SafeSearch holds one normalized likelihood label per content category.
type SafeSearch struct {
	Adult    string `json:"adult"`
	Violence string `json:"violence"`
	Spoof    string `json:"spoof"`
	Medical  string `json:"medical"`
	Racy     string `json:"racy"`
}

// RGB is a plain 8-bit color triple.
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// DominantColor is one entry of the image-properties detector output.
type DominantColor struct {
	RGB           RGB     `json:"rgb"`
	Score         float64 `json:"score"`
	PixelFraction float64 `json:"pixel_fraction"`
}

// AnalysisResult is the durable record produced for one processed image.
// ID and ProcessedAt are assigned by the repository at write time; everything
// else is assembled by the aggregator. Scores and confidences are stored as
// the detectors returned them, and Labels keeps detector order (sorting by
// score is a display concern).
type AnalysisResult struct {
	ID             string          `json:"id"`
	FileName       string          `json:"file_name"`
	ProcessedAt    time.Time       `json:"processed_at"`
	Status         ResultStatus    `json:"status"`
	Labels         []Label         `json:"labels"`
	FullText       string          `json:"full_text"`
	TextFragments  []TextFragment  `json:"text_fragments"`
	Faces          []Face          `json:"faces"`
	SafeSearch     SafeSearch      `json:"safe_search"`
	DominantColors []DominantColor `json:"dominant_colors"`

	// Counters are computed once when the record is assembled and stored
	// alongside it; read paths must trust them rather than recount.
	TotalLabels int `json:"total_labels"`
	TotalTexts  int `json:"total_texts"`
	TotalFaces  int `json:"total_faces"`
}
