package models

import "time"

// GenerationRecord is the persisted audit row written after every text
// generation attempt. Posts themselves are never persisted; the record keeps
// only the inputs and the outcome for diagnostics.
type GenerationRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SessionID    string    `gorm:"index" json:"sessionId"`
	Mood         string    `json:"mood"`
	Scene        string    `json:"scene"`
	ModelVersion string    `json:"modelVersion"`
	Keywords     string    `json:"keywords"`
	PostCount    int       `json:"postCount"`
	DurationMs   int64     `json:"durationMs"`
	Outcome      string    `json:"outcome"`
	ErrorCode    string    `json:"errorCode,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
