// File: internal/infra/pipeline/recovery.go
package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"video-cm-analysis/internal/domain/model"
	"video-cm-analysis/internal/domain/ports/repository"
	"video-cm-analysis/internal/infra/metrics"
)

// Scanner re-queues videos left in a non-terminal state by a prior process
// lifetime. It runs once, synchronously, before the HTTP listener starts.
// After a clean shutdown every entity is terminal, so the scan finds nothing.
type Scanner struct {
	videos repository.VideoRepository
	pipe   *Pipeline
	log    *zerolog.Logger
}

func NewScanner(videos repository.VideoRepository, pipe *Pipeline, logger *zerolog.Logger) *Scanner {
	l := logger.With().Str("component", "RecoveryScanner").Logger()
	return &Scanner{videos: videos, pipe: pipe, log: &l}
}

// Run resets each orphaned video to uploaded and re-enqueues it. A failure
// on one entity is logged and skipped; it never aborts the rest of the scan.
func (s *Scanner) Run(ctx context.Context) int {
	stuck, err := s.videos.ListByStatus(ctx, nil, model.VideoStatusUploaded, model.VideoStatusTranscribing)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to query incomplete transcriptions")
		return 0
	}

	recovered := 0
	for _, v := range stuck {
		if v.Filepath == "" {
			s.log.Warn().Str("video_id", v.ID).Msg("skipping recovery: no stored filepath")
			continue
		}
		if err := s.videos.UpdateStatus(ctx, nil, v.ID, model.VideoStatusUploaded, ""); err != nil {
			s.log.Warn().Err(err).Str("video_id", v.ID).Msg("failed to re-enqueue video")
			continue
		}
		s.pipe.Enqueue(v.ID, v.Filepath)
		s.log.Info().Str("video_id", v.ID).Str("filename", v.Filename).Msg("re-enqueued transcription")
		metrics.IncRecoveredJobs()
		recovered++
	}
	return recovered
}
