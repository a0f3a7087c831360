// File: internal/usecase/analysis.go
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"video-cm-analysis/internal/domain"
	"video-cm-analysis/internal/domain/model"
	"video-cm-analysis/internal/domain/ports/repository"
	"video-cm-analysis/internal/infra/adapters/ai"
	"video-cm-analysis/internal/infra/logging"
	"video-cm-analysis/internal/infra/metrics"
)

// Dispatcher is the credential-rotating generation entry point.
type Dispatcher interface {
	Dispatch(ctx context.Context, prompt string) (text string, modelID string, err error)
}

// AnalysisUseCase builds prompts from stored transcripts, dispatches them to
// the generative model and persists the decoded result.
type AnalysisUseCase struct {
	videos      repository.VideoRepository
	transcripts repository.TranscriptionRepository
	analyses    repository.AnalysisRepository
	dispatcher  Dispatcher
	log         *zerolog.Logger
}

func NewAnalysisUseCase(
	videos repository.VideoRepository,
	transcripts repository.TranscriptionRepository,
	analyses repository.AnalysisRepository,
	dispatcher Dispatcher,
	logger *zerolog.Logger,
) *AnalysisUseCase {
	l := logger.With().Str("component", "AnalysisUC").Logger()
	return &AnalysisUseCase{
		videos:      videos,
		transcripts: transcripts,
		analyses:    analyses,
		dispatcher:  dispatcher,
		log:         &l,
	}
}

type promptVideo struct {
	video      *model.Video
	transcript *model.Transcription
}

// Recommend runs an AI recommendation pass over the transcribed corpus.
// videoID narrows the scope to one entity; empty means all transcribed
// videos. instruction is an optional free-form addition to the prompt.
func (uc *AnalysisUseCase) Recommend(ctx context.Context, videoID, instruction string) (map[string]any, *model.Analysis, error) {
	defer logging.TraceDuration(uc.log, "Recommend")()

	inputs, err := uc.collect(ctx, videoID)
	if err != nil {
		return nil, nil, err
	}
	if len(inputs) == 0 {
		return nil, nil, fmt.Errorf("%w: no transcribed videos to analyze", domain.ErrNotFound)
	}

	prompt := buildRecommendationPrompt(inputs, instruction)
	uc.observePromptSize(prompt)

	text, modelID, err := uc.dispatcher.Dispatch(ctx, prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("dispatch analysis: %w", err)
	}

	result := ai.DecodeResult(text)
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, nil, fmt.Errorf("encode analysis result: %w", err)
	}

	scope := "all"
	if videoID != "" {
		scope = videoID
	}
	a := &model.Analysis{
		Type:       model.AnalysisTypeAIRecommendation,
		Scope:      scope,
		VideoID:    videoID,
		ResultJSON: string(raw),
		ModelUsed:  modelID,
	}
	if err := uc.analyses.Save(ctx, nil, a); err != nil {
		return nil, nil, fmt.Errorf("save analysis: %w", err)
	}

	uc.log.Info().
		Str("scope", scope).
		Str("model", modelID).
		Int("videos", len(inputs)).
		Msg("analysis stored")
	return result, a, nil
}

// Results lists recent stored analyses, newest first.
func (uc *AnalysisUseCase) Results(ctx context.Context, limit int) ([]*model.Analysis, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return uc.analyses.ListRecent(ctx, nil, model.AnalysisTypeAIRecommendation, limit)
}

func (uc *AnalysisUseCase) collect(ctx context.Context, videoID string) ([]promptVideo, error) {
	var videos []*model.Video
	if videoID != "" {
		v, err := uc.videos.FindByID(ctx, nil, videoID)
		if err != nil {
			return nil, err
		}
		videos = []*model.Video{v}
	} else {
		all, err := uc.videos.ListAll(ctx, nil)
		if err != nil {
			return nil, err
		}
		videos = all
	}

	var inputs []promptVideo
	for _, v := range videos {
		if v.Status != model.VideoStatusTranscribed {
			continue
		}
		t, err := uc.transcripts.FindByVideoID(ctx, nil, v.ID)
		if err != nil {
			// Status says transcribed but the transcript row is missing;
			// skip rather than fail the whole analysis.
			uc.log.Warn().Err(err).Str("video_id", v.ID).Msg("transcript missing for transcribed video")
			continue
		}
		inputs = append(inputs, promptVideo{video: v, transcript: t})
	}
	return inputs, nil
}

// observePromptSize records an approximate token count. Token counting is
// advisory only; a counting failure never blocks the analysis.
func (uc *AnalysisUseCase) observePromptSize(prompt string) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		uc.log.Debug().Err(err).Msg("token encoding unavailable")
		return
	}
	tokens := len(enc.Encode(prompt, nil, nil))
	metrics.ObservePromptTokens("gemini", tokens)
	uc.log.Debug().Int("prompt_tokens", tokens).Msg("prompt built")
}

func buildRecommendationPrompt(inputs []promptVideo, instruction string) string {
	var b strings.Builder
	b.WriteString("You are a marketing analyst reviewing video CM (commercial) transcripts.\n")
	b.WriteString("Analyze the transcripts below and produce actionable recommendations.\n\n")

	for i, in := range inputs {
		fmt.Fprintf(&b, "--- Video %d: %s ---\n", i+1, in.video.Filename)
		if in.video.Ranking > 0 {
			fmt.Fprintf(&b, "Campaign ranking: %d (1 = best performing)\n", in.video.Ranking)
		}
		if in.video.RankingNotes != "" {
			fmt.Fprintf(&b, "Notes: %s\n", in.video.RankingNotes)
		}
		fmt.Fprintf(&b, "Transcript (%s):\n%s\n\n", in.transcript.Language, in.transcript.FullText)
	}

	if instruction != "" {
		b.WriteString("Additional instruction from the analyst:\n")
		b.WriteString(instruction)
		b.WriteString("\n\n")
	}

	b.WriteString("Respond with a single JSON object and nothing else, using exactly these keys:\n")
	b.WriteString(`{"summary": string, "effective_keywords": [string], "effective_phrases": [string], ` +
		`"correlation_insights": [string], "recommendations": [string], "funnel_suggestions": [string]}`)
	b.WriteString("\nWrite all values in the same language as the transcripts.")
	return b.String()
}
