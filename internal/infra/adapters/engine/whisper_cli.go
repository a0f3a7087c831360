package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"video-cm-analysis/internal/domain/ports/adapter"
)

var _ adapter.SpeechEngine = (*WhisperCLI)(nil)

// WhisperCLI runs a local whisper binary that emits the transcript as JSON
// on stdout: {"text": ..., "language": ..., "segments": [{"start","end","text"}]}.
// The binary loads model weights per invocation, so construction only
// verifies the binary exists.
type WhisperCLI struct {
	binPath string
	model   string
}

type whisperOut struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func NewWhisperCLI(binPath, model string) (*WhisperCLI, error) {
	if binPath == "" {
		return nil, fmt.Errorf("whisper: empty binary path")
	}
	if _, err := exec.LookPath(binPath); err != nil {
		return nil, fmt.Errorf("whisper: binary not found: %w", err)
	}
	return &WhisperCLI{binPath: binPath, model: model}, nil
}

func (w *WhisperCLI) ModelName() string { return w.model }

func (w *WhisperCLI) Transcribe(ctx context.Context, filepath, language string) (*adapter.TranscriptResult, error) {
	args := []string{"--model", w.model, "--output_format", "json", "--task", "transcribe"}
	if language != "" {
		args = append(args, "--language", language)
	}
	args = append(args, filepath)

	cmd := exec.CommandContext(ctx, w.binPath, args...)
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("whisper failed: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("run whisper: %w", err)
	}

	var parsed whisperOut
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}
	res := &adapter.TranscriptResult{
		Text:     strings.TrimSpace(parsed.Text),
		Language: parsed.Language,
	}
	if res.Language == "" {
		res.Language = language
	}
	for _, s := range parsed.Segments {
		res.Segments = append(res.Segments, adapter.TranscriptSegment{
			Start: s.Start,
			End:   s.End,
			Text:  strings.TrimSpace(s.Text),
		})
	}
	return res, nil
}
