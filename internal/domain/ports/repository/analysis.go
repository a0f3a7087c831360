package repository

import (
	"context"

	"video-cm-analysis/internal/domain/model"
)

type AnalysisRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Analysis) error
	ListRecent(ctx context.Context, tx Tx, analysisType model.AnalysisType, limit int) ([]*model.Analysis, error)
}
