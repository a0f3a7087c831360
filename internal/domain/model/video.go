package model

import "time"

type VideoStatus string

const (
	VideoStatusUploaded     VideoStatus = "uploaded"
	VideoStatusTranscribing VideoStatus = "transcribing"
	VideoStatusTranscribed  VideoStatus = "transcribed"
	VideoStatusError        VideoStatus = "error"
)

// MaxErrorMessageLen bounds the error text stored on a video so failures
// stay user-readable and fit the column.
const MaxErrorMessageLen = 500

type Video struct {
	ID              string
	Filename        string
	Filepath        string
	FileSize        int64
	DurationSeconds float64
	Status          VideoStatus
	ErrorMessage    string
	Ranking         int // 0 = unranked, 1 = best
	RankingNotes    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MarkError transitions the video to the error state with a truncated,
// human-readable message.
func (v *Video) MarkError(msg string) {
	v.Status = VideoStatusError
	v.ErrorMessage = TruncateError(msg)
}

// TruncateError bounds msg to MaxErrorMessageLen characters. The cut counts
// runes, not bytes: a multibyte message sliced mid-rune would be invalid
// UTF-8 and rejected by the database on write.
func TruncateError(msg string) string {
	if len(msg) <= MaxErrorMessageLen {
		return msg
	}
	runes := []rune(msg)
	if len(runes) <= MaxErrorMessageLen {
		return msg
	}
	return string(runes[:MaxErrorMessageLen])
}
