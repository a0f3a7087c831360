package adapter

import "context"

// TranscriptResult is the raw output of a speech engine run.
type TranscriptResult struct {
	Text     string
	Language string
	Segments []TranscriptSegment
}

type TranscriptSegment struct {
	Start float64
	End   float64
	Text  string
}

// SpeechEngine transcribes one media file. Implementations are heavy
// (model weights, subprocess startup) and must never run two transcriptions
// concurrently; the pipeline guarantees sequential invocation.
type SpeechEngine interface {
	Transcribe(ctx context.Context, filepath, language string) (*TranscriptResult, error)
	// ModelName identifies the loaded model for bookkeeping.
	ModelName() string
}
