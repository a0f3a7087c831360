package repository

import (
	"context"

	"video-cm-analysis/internal/domain/model"
)

type TranscriptionRepository interface {
	// SaveWithSegments persists the transcription and all of its segments
	// atomically within the given transaction.
	SaveWithSegments(ctx context.Context, tx Tx, t *model.Transcription) error
	FindByVideoID(ctx context.Context, tx Tx, videoID string) (*model.Transcription, error)
	DeleteByVideoID(ctx context.Context, tx Tx, videoID string) error
}
