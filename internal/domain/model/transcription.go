package model

import "time"

type Transcription struct {
	ID                    string
	VideoID               string
	FullText              string
	Language              string
	ModelUsed             string
	ProcessingTimeSeconds float64
	Segments              []Segment
	CreatedAt             time.Time
}

// Segment is one timed slice of a transcription, ordered by StartTime.
type Segment struct {
	ID              string
	TranscriptionID string
	StartTime       float64
	EndTime         float64
	Text            string
}
