package model

import "time"

// GroundTruthPair is a human-authored question with its expected answer,
// used by the evaluation engine.
type GroundTruthPair struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	Question       string    `gorm:"type:text;not null" json:"question"`
	ExpectedAnswer string    `gorm:"type:text;not null" json:"expectedAnswer"`
	CreatedAt      time.Time `json:"createdAt"`
}
