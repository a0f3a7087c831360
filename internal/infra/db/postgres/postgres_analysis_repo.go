package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"video-cm-analysis/internal/domain"
	"video-cm-analysis/internal/domain/model"
	"video-cm-analysis/internal/domain/ports/repository"
)

var _ repository.AnalysisRepository = (*analysisRepo)(nil)

type analysisRepo struct {
	pool *pgxpool.Pool
}

func NewAnalysisRepo(pool *pgxpool.Pool) *analysisRepo {
	return &analysisRepo{pool: pool}
}

func (r *analysisRepo) Save(ctx context.Context, tx repository.Tx, a *model.Analysis) error {
	if a.ID == "" {
		a.ID = ulid.Make().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO analyses (id, analysis_type, scope, video_id, result_json, model_used, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7);`
	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, string(a.Type), a.Scope, a.VideoID, a.ResultJSON, a.ModelUsed, a.CreatedAt)
	return err
}

func (r *analysisRepo) ListRecent(ctx context.Context, tx repository.Tx, analysisType model.AnalysisType, limit int) ([]*model.Analysis, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, analysis_type, scope, COALESCE(video_id, ''), result_json, model_used, created_at
FROM analyses
WHERE ($1 = '' OR analysis_type = $1)
ORDER BY created_at DESC
LIMIT $2;`

	rows, err := pickRows(ctx, r.pool, tx, q, string(analysisType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Analysis
	for rows.Next() {
		var a model.Analysis
		var typeStr string
		if err := rows.Scan(&a.ID, &typeStr, &a.Scope, &a.VideoID, &a.ResultJSON, &a.ModelUsed, &a.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		a.Type = model.AnalysisType(typeStr)
		out = append(out, &a)
	}
	return out, rows.Err()
}
