// File: internal/usecase/video.go
package usecase

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"video-cm-analysis/internal/domain"
	"video-cm-analysis/internal/domain/model"
	"video-cm-analysis/internal/domain/ports/repository"
	"video-cm-analysis/internal/infra/logging"
)

// Enqueuer is the slice of the transcription pipeline the use cases need.
type Enqueuer interface {
	Enqueue(videoID, filepath string)
	Forget(videoID string)
}

// VideoUseCase covers the video lifecycle: registration after upload,
// retrieval, retry of failed transcriptions, ranking and deletion.
type VideoUseCase struct {
	videos      repository.VideoRepository
	transcripts repository.TranscriptionRepository
	tm          repository.TransactionManager
	queue       Enqueuer
	log         *zerolog.Logger
}

func NewVideoUseCase(
	videos repository.VideoRepository,
	transcripts repository.TranscriptionRepository,
	tm repository.TransactionManager,
	queue Enqueuer,
	logger *zerolog.Logger,
) *VideoUseCase {
	l := logger.With().Str("component", "VideoUC").Logger()
	return &VideoUseCase{videos: videos, transcripts: transcripts, tm: tm, queue: queue, log: &l}
}

// Register persists a freshly uploaded file as an entity in the uploaded
// state and hands it to the transcription queue. The status write commits
// before enqueueing, so a crash in between is repaired by the recovery scan.
func (uc *VideoUseCase) Register(ctx context.Context, filename, filepath string, size int64) (*model.Video, error) {
	defer logging.TraceDuration(uc.log, "Register")()

	v := &model.Video{
		ID:        uuid.NewString(),
		Filename:  filename,
		Filepath:  filepath,
		FileSize:  size,
		Status:    model.VideoStatusUploaded,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := uc.videos.Save(ctx, nil, v); err != nil {
		return nil, fmt.Errorf("save video: %w", err)
	}
	uc.queue.Enqueue(v.ID, v.Filepath)

	uc.log.Info().Str("video_id", v.ID).Str("filename", filename).Int64("size", size).Msg("video registered")
	return v, nil
}

func (uc *VideoUseCase) List(ctx context.Context) ([]*model.Video, error) {
	return uc.videos.ListAll(ctx, nil)
}

func (uc *VideoUseCase) Get(ctx context.Context, id string) (*model.Video, error) {
	return uc.videos.FindByID(ctx, nil, id)
}

// GetTranscript returns the stored transcription for a video, or
// domain.ErrNotFound when the video has not been transcribed yet.
func (uc *VideoUseCase) GetTranscript(ctx context.Context, videoID string) (*model.Transcription, error) {
	if _, err := uc.videos.FindByID(ctx, nil, videoID); err != nil {
		return nil, err
	}
	return uc.transcripts.FindByVideoID(ctx, nil, videoID)
}

// Retry re-queues a video whose transcription previously failed. Only the
// error state is retryable; anything else returns ErrVideoNotRetryable.
func (uc *VideoUseCase) Retry(ctx context.Context, id string) (*model.Video, error) {
	v, err := uc.videos.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if v.Status != model.VideoStatusError {
		return nil, fmt.Errorf("%w: status is %s", domain.ErrVideoNotRetryable, v.Status)
	}
	if err := uc.videos.UpdateStatus(ctx, nil, id, model.VideoStatusUploaded, ""); err != nil {
		return nil, err
	}
	v.Status = model.VideoStatusUploaded
	v.ErrorMessage = ""
	uc.queue.Enqueue(v.ID, v.Filepath)

	uc.log.Info().Str("video_id", id).Msg("transcription retry queued")
	return v, nil
}

// UpdateRanking stores the manual campaign ranking (1 = best, 0 = unranked)
// and optional notes used to enrich analysis prompts.
func (uc *VideoUseCase) UpdateRanking(ctx context.Context, id string, ranking int, notes string) (*model.Video, error) {
	if ranking < 0 {
		return nil, fmt.Errorf("%w: ranking must not be negative", domain.ErrInvalidArgument)
	}
	v, err := uc.videos.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	v.Ranking = ranking
	v.RankingNotes = notes
	v.UpdatedAt = time.Now()
	if err := uc.videos.Save(ctx, nil, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Delete removes the video, its transcription and the file on disk. The
// database rows go in one transaction; a failure to unlink the file is
// logged but does not fail the call.
func (uc *VideoUseCase) Delete(ctx context.Context, id string) error {
	v, err := uc.videos.FindByID(ctx, nil, id)
	if err != nil {
		return err
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.transcripts.DeleteByVideoID(ctx, tx, id); err != nil {
			return err
		}
		return uc.videos.Delete(ctx, tx, id)
	})
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	// Deleted while still waiting in the queue: drop the pending job so
	// status views stop listing it.
	uc.queue.Forget(id)

	if v.Filepath != "" {
		if err := os.Remove(v.Filepath); err != nil && !os.IsNotExist(err) {
			uc.log.Warn().Err(err).Str("video_id", id).Str("filepath", v.Filepath).Msg("failed to remove file")
		}
	}
	uc.log.Info().Str("video_id", id).Msg("video deleted")
	return nil
}
