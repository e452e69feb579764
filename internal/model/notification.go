package model

import "time"

// NotificationMessage is the compact summary published when a result is
// written. It carries no payload beyond the counters; consumers that need
// detail re-fetch the result by ResultID.
type NotificationMessage struct {
	FileName    string    `json:"file_name"`
	ResultID    string    `json:"result_id"`
	EmittedAt   time.Time `json:"emitted_at"`
	TotalLabels int       `json:"total_labels"`
	TotalTexts  int       `json:"total_texts"`
	TotalFaces  int       `json:"total_faces"`
}

// NewNotificationMessage derives the summary from a persisted result.
func NewNotificationMessage(res *AnalysisResult, emittedAt time.Time) NotificationMessage {
	return NotificationMessage{
		FileName:    res.FileName,
		ResultID:    res.ID,
		EmittedAt:   emittedAt,
		TotalLabels: res.TotalLabels,
		TotalTexts:  res.TotalTexts,
		TotalFaces:  res.TotalFaces,
	}
}

// NotificationRecord is the history entry the consumer persists for each
// successfully processed message. Created once, never updated.
type NotificationRecord struct {
	FileName    string    `json:"file_name"`
	ResultID    string    `json:"result_id"`
	EmittedAt   time.Time `json:"emitted_at"`
	ReceivedAt  time.Time `json:"received_at"`
	TotalLabels int       `json:"total_labels"`
	TotalTexts  int       `json:"total_texts"`
	TotalFaces  int       `json:"total_faces"`
}
