package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"video-cm-analysis/internal/domain/ports/adapter"
)

var _ adapter.SpeechEngine = (*OpenAIEngine)(nil)

// OpenAIEngine transcribes through the hosted OpenAI audio API. It returns
// the full text with a single covering segment; per-segment timing is not
// exposed by the plain JSON response format.
type OpenAIEngine struct {
	client openai.Client
	model  string
}

func NewOpenAIEngine(apiKey string) (*OpenAIEngine, error) {
	if apiKey == "" {
		return nil, errors.New("openai engine: empty api key")
	}
	return &OpenAIEngine{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  string(openai.AudioModelWhisper1),
	}, nil
}

func (o *OpenAIEngine) ModelName() string { return o.model }

func (o *OpenAIEngine) Transcribe(ctx context.Context, path, language string) (*adapter.TranscriptResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open media: %w", err)
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModelWhisper1,
	}
	if language != "" {
		params.Language = openai.String(language)
	}
	tr, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	res := &adapter.TranscriptResult{
		Text:     tr.Text,
		Language: language,
	}
	if res.Text != "" {
		res.Segments = []adapter.TranscriptSegment{{Start: 0, End: 0, Text: res.Text}}
	}
	return res, nil
}
