package repository

import (
	"context"

	"video-cm-analysis/internal/domain/model"
)

type VideoRepository interface {
	Save(ctx context.Context, tx Tx, v *model.Video) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Video, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Video, error)
	// ListByStatus returns videos in any of the given states, oldest first.
	// The recovery scan uses it to find work orphaned by a prior process.
	ListByStatus(ctx context.Context, tx Tx, statuses ...model.VideoStatus) ([]*model.Video, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.VideoStatus, errorMessage string) error
	Delete(ctx context.Context, tx Tx, id string) error
}
